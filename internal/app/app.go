// Package app wires configuration into loaders, journals, notification
// sinks and metrics shared by every replay session of a process.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradereplay/config"
	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/journal"
	"github.com/rustyeddy/tradereplay/notify"
	"github.com/rustyeddy/tradereplay/replay"
	"github.com/rustyeddy/tradereplay/sim"
)

// App holds the process-wide dependencies. Sessions built by NewSession
// share the loader, journal, sinks and metrics but nothing else.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Loader   feed.Loader
	Journal  journal.Journal
	Registry *prometheus.Registry
	Metrics  *replay.Metrics
	Sinks    []notify.Sink

	policy  sim.RepeatBuyPolicy
	cache   *feed.Cache
	closers []io.Closer
}

// Options override parts of the wiring, mostly for tests.
type Options struct {
	Loader feed.Loader // replaces the backend client
	Bell   io.Writer   // audio cue output, stderr when nil
}

func New(cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	policy, err := cfg.RepeatBuy()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: reg,
		Metrics:  replay.NewMetrics(reg),
		policy:   policy,
	}

	if err := a.buildLoader(opts.Loader); err != nil {
		a.Close()
		return nil, err
	}
	if a.Journal, err = OpenJournal(cfg.Journal); err != nil {
		a.Close()
		return nil, fmt.Errorf("create journal: %w", err)
	}
	if err := a.buildSinks(opts.Bell); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildLoader(remote feed.Loader) error {
	cfg := a.Config
	if remote == nil {
		remote = feed.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, a.Log)
	}
	if cfg.Backend.CacheMaxBars > 0 {
		c, err := feed.NewCache(feed.CacheConfig{MaxBars: cfg.Backend.CacheMaxBars, TTL: cfg.Backend.CacheTTL})
		if err != nil {
			return fmt.Errorf("feed cache: %w", err)
		}
		a.cache = c
		remote = feed.NewCachedLoader(remote, c)
	}

	labeler, err := cfg.LocalStrategy()
	if err != nil {
		return err
	}
	a.Loader = &feed.Router{Remote: remote, Files: &feed.FileLoader{Strategy: labeler}}
	return nil
}

// OpenJournal builds the journal named by cfg.Type.
func OpenJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "", "none":
		return journal.Nop{}, nil
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.PnLFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	}
	return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
}

func (a *App) buildSinks(bell io.Writer) error {
	cfg := a.Config.Notify
	perm, err := notify.ParsePermission(cfg.Permission)
	if err != nil {
		return err
	}

	a.Sinks = append(a.Sinks, notify.NewLogSink(a.Log))
	if cfg.Audio {
		if bell == nil {
			bell = os.Stderr
		}
		a.Sinks = append(a.Sinks, notify.NewAudioSink(notify.BellPlayer{W: bell}))
	}
	// Kafka stands in for the platform notification and honors the
	// permission setting.
	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, ks)
		a.Sinks = append(a.Sinks, notify.Gate{Permission: perm, Sink: ks})
	}
	return nil
}

// NewSession builds an independent session for q. It matches
// server.SessionFactory.
func (a *App) NewSession(id string, q feed.Query, speed replay.Speed) (*replay.Session, error) {
	log := a.Log
	if id != "" {
		log = log.With(zap.String("session", id))
	}
	d := notify.NewDispatcher(
		notify.WithLogger(log),
		notify.WithSinks(a.Sinks...),
		notify.WithSinkErrorHook(a.Metrics.SinkError),
	)
	return replay.NewSession(replay.Options{
		ID:      id,
		Query:   q,
		Speed:   speed,
		Policy:  a.policy,
		Loader:  a.Loader,
		Notify:  d,
		Journal: a.Journal,
		Metrics: a.Metrics,
		Logger:  a.Log,
	})
}

// Close releases the journal, the cache and the Kafka writer.
func (a *App) Close() error {
	var errs []error
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.cache != nil {
		a.cache.Close()
	}
	return errors.Join(errs...)
}
