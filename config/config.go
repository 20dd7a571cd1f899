package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/notify"
	"github.com/rustyeddy/tradereplay/replay"
	"github.com/rustyeddy/tradereplay/signals"
	"github.com/rustyeddy/tradereplay/sim"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// TRADEREPLAY_PLAYBACK_SYMBOL.
const EnvPrefix = "TRADEREPLAY_"

// Config represents the complete tradereplay configuration
type Config struct {
	Backend  BackendConfig  `json:"backend" yaml:"backend" envPrefix:"BACKEND_"`
	Playback PlaybackConfig `json:"playback" yaml:"playback" envPrefix:"PLAYBACK_"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger" envPrefix:"LEDGER_"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify" envPrefix:"NOTIFY_"`
	Journal  JournalConfig  `json:"journal" yaml:"journal" envPrefix:"JOURNAL_"`
	Log      LogConfig      `json:"log" yaml:"log" envPrefix:"LOG_"`
	Server   ServerConfig   `json:"server" yaml:"server" envPrefix:"SERVER_"`
}

// BackendConfig locates the dashboard backend
type BackendConfig struct {
	BaseURL      string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	CacheTTL     time.Duration `json:"cache_ttl" yaml:"cache_ttl" env:"CACHE_TTL"`
	CacheMaxBars int64         `json:"cache_max_bars" yaml:"cache_max_bars" env:"CACHE_MAX_BARS"` // 0 disables the cache
}

// PlaybackConfig selects the feed and how fast it plays
type PlaybackConfig struct {
	Source        string `json:"source" yaml:"source" env:"SOURCE"` // strategy, live, simulator or file
	File          string `json:"file,omitempty" yaml:"file,omitempty" env:"FILE"`
	Symbol        string `json:"symbol" yaml:"symbol" env:"SYMBOL"`
	Strategy      string `json:"strategy" yaml:"strategy" env:"STRATEGY"`
	Resolution    string `json:"resolution" yaml:"resolution" env:"RESOLUTION"`
	Lookback      string `json:"lookback" yaml:"lookback" env:"LOOKBACK"`
	Speed         string `json:"speed" yaml:"speed" env:"SPEED"`
	LocalStrategy string `json:"local_strategy,omitempty" yaml:"local_strategy,omitempty" env:"LOCAL_STRATEGY"` // labels file feeds
	FastPeriod    int    `json:"fast_period,omitempty" yaml:"fast_period,omitempty" env:"FAST_PERIOD"`
	SlowPeriod    int    `json:"slow_period,omitempty" yaml:"slow_period,omitempty" env:"SLOW_PERIOD"`
}

// LedgerConfig picks the repeat-BUY policy
type LedgerConfig struct {
	RepeatBuy string `json:"repeat_buy" yaml:"repeat_buy" env:"REPEAT_BUY"` // ignore, fifo or lifo
}

// NotifyConfig enables the notification sinks
type NotifyConfig struct {
	Audio      bool        `json:"audio" yaml:"audio" env:"AUDIO"`
	Permission string      `json:"permission" yaml:"permission" env:"PERMISSION"`
	Kafka      KafkaConfig `json:"kafka" yaml:"kafka" envPrefix:"KAFKA_"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers,omitempty" yaml:"brokers,omitempty" env:"BROKERS" envSeparator:","`
	Topic   string   `json:"topic,omitempty" yaml:"topic,omitempty" env:"TOPIC"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type" env:"TYPE"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty" env:"TRADES_FILE"`
	PnLFile    string `json:"pnl_file,omitempty" yaml:"pnl_file,omitempty" env:"PNL_FILE"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty" env:"DB_PATH"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level" env:"LEVEL"`
	Development bool   `json:"development" yaml:"development" env:"DEVELOPMENT"`
	File        string `json:"file,omitempty" yaml:"file,omitempty" env:"FILE"`
}

type ServerConfig struct {
	Addr       string `json:"addr" yaml:"addr" env:"ADDR"`
	CORSOrigin string `json:"cors_origin" yaml:"cors_origin" env:"CORS_ORIGIN"`
}

// Load reads path (when set) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
// Fields the file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv loads a .env file from the working directory, if there is one,
// and overrides fields from TRADEREPLAY_* variables.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	q, err := c.Query()
	if err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	if _, err := c.Speed(); err != nil {
		return fmt.Errorf("playback.speed: %w", err)
	}
	if _, err := c.LocalStrategy(); err != nil {
		return fmt.Errorf("playback.local_strategy: %w", err)
	}
	if _, err := c.RepeatBuy(); err != nil {
		return fmt.Errorf("ledger.repeat_buy: %w", err)
	}
	if _, err := notify.ParsePermission(c.Notify.Permission); err != nil {
		return fmt.Errorf("notify.permission: %w", err)
	}
	if len(c.Notify.Kafka.Brokers) > 0 && c.Notify.Kafka.Topic == "" {
		return fmt.Errorf("notify.kafka.topic required when brokers are set")
	}
	if c.Backend.Timeout < 0 || c.Backend.CacheTTL < 0 {
		return fmt.Errorf("backend durations must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.PnLFile == "" {
			return fmt.Errorf("journal trades_file and pnl_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// Query builds the feed query for the playback section.
func (c *Config) Query() (feed.Query, error) {
	src, err := feed.ParseSource(c.Playback.Source)
	if err != nil {
		return feed.Query{}, fmt.Errorf("playback.source: %w", err)
	}
	q := feed.Query{
		Source:   src,
		Symbol:   strings.ToUpper(strings.TrimSpace(c.Playback.Symbol)),
		Strategy: c.Playback.Strategy,
		Lookback: c.Playback.Lookback,
		File:     c.Playback.File,
	}
	if c.Playback.Resolution != "" {
		r, err := market.ParseResolution(c.Playback.Resolution)
		if err != nil {
			return feed.Query{}, fmt.Errorf("playback.resolution: %w", err)
		}
		q.Resolution = r
	}
	return q, nil
}

func (c *Config) Speed() (replay.Speed, error) {
	return replay.ParseSpeed(c.Playback.Speed)
}

func (c *Config) RepeatBuy() (sim.RepeatBuyPolicy, error) {
	return sim.ParsePolicy(c.Ledger.RepeatBuy)
}

// LocalStrategy returns the labeler for file feeds, or nil when none is
// configured.
func (c *Config) LocalStrategy() (signals.Strategy, error) {
	if c.Playback.LocalStrategy == "" {
		return nil, nil
	}
	return signals.ByName(c.Playback.LocalStrategy, signals.EMACrossConfig{
		FastPeriod: c.Playback.FastPeriod,
		SlowPeriod: c.Playback.SlowPeriod,
	})
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:      feed.DefaultBaseURL,
			Timeout:      30 * time.Second,
			CacheTTL:     10 * time.Minute,
			CacheMaxBars: 1 << 20,
		},
		Playback: PlaybackConfig{
			Source:     string(feed.SourceStrategy),
			Symbol:     "SPY",
			Strategy:   "sma_crossover",
			Resolution: "1d",
			Lookback:   "1y",
			Speed:      "1x",
		},
		Ledger: LedgerConfig{
			RepeatBuy: "ignore",
		},
		Notify: NotifyConfig{
			Audio:      false,
			Permission: string(notify.PermissionDefault),
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:       ":8080",
			CORSOrigin: "*",
		},
	}
}
