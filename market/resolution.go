package market

import (
	"fmt"
	"strings"
	"time"
)

// Resolution is the bar interval requested from the backend, e.g. "1d".
type Resolution string

var resolutions = map[Resolution]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1wk": 7 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
}

// aliases maps the broker-style names (M1, H1, D1...) onto backend names.
var aliases = map[string]Resolution{
	"M1":  "1m",
	"M5":  "5m",
	"M15": "15m",
	"M30": "30m",
	"H1":  "1h",
	"H4":  "4h",
	"D1":  "1d",
	"D":   "1d",
	"W1":  "1wk",
	"1W":  "1wk",
	"MN1": "1mo",
}

// ParseResolution validates s and maps broker-style aliases.
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if r, ok := aliases[strings.ToUpper(s)]; ok {
		return r, nil
	}
	r := Resolution(strings.ToLower(s))
	if _, ok := resolutions[r]; !ok {
		return "", fmt.Errorf("unsupported resolution: %s", s)
	}
	return r, nil
}

// Duration returns the bar length, or zero for an unknown resolution.
func (r Resolution) Duration() time.Duration {
	return resolutions[r]
}

func (r Resolution) String() string { return string(r) }
