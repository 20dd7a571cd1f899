package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradereplay/config"
)

// playbackFlags override the playback section for a single run.
type playbackFlags struct {
	source     string
	file       string
	symbol     string
	strategy   string
	resolution string
	lookback   string
	speed      string
	local      string
	repeatBuy  string
}

func (p *playbackFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&p.source, "source", "", "feed source: strategy, live, simulator or file")
	fs.StringVar(&p.file, "file", "", "CSV or JSON feed file (implies --source file)")
	fs.StringVarP(&p.symbol, "symbol", "s", "", "ticker symbol")
	fs.StringVar(&p.strategy, "strategy", "", "backend strategy name")
	fs.StringVarP(&p.resolution, "resolution", "r", "", "bar resolution (1m, 5m, 1h, 1d, ...)")
	fs.StringVar(&p.lookback, "lookback", "", "history to request, e.g. 6mo or 1y")
	fs.StringVar(&p.speed, "speed", "", "playback speed: 1x, 2x or 4x")
	fs.StringVar(&p.local, "label", "", "label file feeds with a local strategy (noop, ema-cross, ema-cross-adx, sma-cross)")
	fs.StringVar(&p.repeatBuy, "repeat-buy", "", "repeat BUY policy: ignore, fifo or lifo")
}

func (p *playbackFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		fs := cmd.Flags()
		set := func(name string, dst *string, v string) {
			if fs.Changed(name) {
				*dst = v
			}
		}
		set("source", &cfg.Playback.Source, p.source)
		set("file", &cfg.Playback.File, p.file)
		set("symbol", &cfg.Playback.Symbol, p.symbol)
		set("strategy", &cfg.Playback.Strategy, p.strategy)
		set("resolution", &cfg.Playback.Resolution, p.resolution)
		set("lookback", &cfg.Playback.Lookback, p.lookback)
		set("speed", &cfg.Playback.Speed, p.speed)
		set("label", &cfg.Playback.LocalStrategy, p.local)
		set("repeat-buy", &cfg.Ledger.RepeatBuy, p.repeatBuy)
		if fs.Changed("file") && !fs.Changed("source") {
			cfg.Playback.Source = "file"
		}
	}
}
