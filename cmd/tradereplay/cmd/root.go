package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradereplay/config"
	"github.com/rustyeddy/tradereplay/internal/app"
	"github.com/rustyeddy/tradereplay/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "tradereplay",
	Short: "Replay strategy signals bar by bar and track paper P/L",
	Long: `Tradereplay fetches price bars and BUY/SELL signals from a strategy
backend and plays them back on a clock, one bar per tick.

It provides tools for:
  - Replaying a feed in the terminal or headless
  - Serving independent replay sessions over HTTP
  - Journaling closed trades and P/L to CSV or SQLite
  - Saving feeds to CSV for offline replay

Configuration comes from a YAML or JSON file, then TRADEREPLAY_* environment
variables (a .env file is read when present).`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	logLevel string
	logDev   bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "human readable console logs")
}

// loadConfig reads --config and environment overrides, then applies the
// global log flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logDev {
		cfg.Log.Development = true
	}
	return cfg, nil
}

// setup loads the config and builds the logger and app wiring. quiet keeps
// log output off the terminal.
func setup(quiet bool, overrides ...func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, fn := range overrides {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Log, quiet)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Debug("configured",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("journal", cfg.Journal.Type),
		zap.Int("sinks", len(a.Sinks)),
	)
	return a, nil
}

func teardown(a *app.App) {
	if err := a.Close(); err != nil {
		a.Log.Warn("shutdown", zap.Error(err))
	}
	_ = a.Log.Sync()
}
