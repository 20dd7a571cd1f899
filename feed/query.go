package feed

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rustyeddy/tradereplay/market"
)

// Source selects where a feed comes from.
type Source string

const (
	// SourceStrategy is GET /api/strategy.
	SourceStrategy Source = "strategy"
	// SourceLive is GET /api/strategy/live.
	SourceLive Source = "live"
	// SourceSimulator is GET /api/simulator-data.
	SourceSimulator Source = "simulator"
	// SourceFile reads a CSV or JSON file from disk.
	SourceFile Source = "file"
)

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceStrategy:
		return SourceStrategy, nil
	case SourceLive:
		return SourceLive, nil
	case SourceSimulator, "simulator-data":
		return SourceSimulator, nil
	case SourceFile:
		return SourceFile, nil
	}
	return "", fmt.Errorf("unknown feed source %q (supported: strategy, live, simulator, file)", s)
}

// Path is the backend endpoint for the source, empty for SourceFile.
func (s Source) Path() string {
	switch s {
	case SourceStrategy:
		return "/api/strategy"
	case SourceLive:
		return "/api/strategy/live"
	case SourceSimulator:
		return "/api/simulator-data"
	}
	return ""
}

// Query identifies one feed. Two queries with the same CacheKey return the
// same data.
type Query struct {
	Source     Source            `json:"source"`
	Symbol     string            `json:"symbol"`
	Strategy   string            `json:"strategy"`
	Resolution market.Resolution `json:"resolution"`
	Lookback   string            `json:"lookback"`
	File       string            `json:"file,omitempty"`
}

func (q Query) Validate() error {
	if q.Source == SourceFile {
		if q.File == "" {
			return fmt.Errorf("file source requires a file path")
		}
		return nil
	}
	if q.Source.Path() == "" {
		return fmt.Errorf("unknown feed source %q", q.Source)
	}
	if strings.TrimSpace(q.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if q.Resolution != "" {
		if _, err := market.ParseResolution(string(q.Resolution)); err != nil {
			return err
		}
	}
	return nil
}

// Values encodes the backend query string.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("symbol", strings.ToUpper(strings.TrimSpace(q.Symbol)))
	if q.Strategy != "" {
		v.Set("strategy", q.Strategy)
	}
	if q.Resolution != "" {
		v.Set("resolution", string(q.Resolution))
	}
	if q.Lookback != "" {
		v.Set("lookback", q.Lookback)
	}
	return v
}

func (q Query) CacheKey() string {
	if q.Source == SourceFile {
		return string(SourceFile) + ":" + q.File + ":" + q.Strategy
	}
	return string(q.Source) + "?" + q.Values().Encode()
}

func (q Query) String() string {
	if q.Source == SourceFile {
		return q.File
	}
	return fmt.Sprintf("%s %s %s/%s/%s", q.Source, strings.ToUpper(q.Symbol), q.Strategy, q.Resolution, q.Lookback)
}
