package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Key is the canonical, comparable form of a bar or signal timestamp.
type Key string

func (k Key) String() string { return string(k) }

// ErrUnparseableTimestamp is wrapped by every *TimestampError.
var ErrUnparseableTimestamp = errors.New("unparseable timestamp")

// TimestampError reports a raw timestamp that matched none of the known formats.
type TimestampError struct {
	Raw string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("unparseable timestamp %q", e.Raw)
}

func (e *TimestampError) Unwrap() error { return ErrUnparseableTimestamp }

// epochMillisCutoff separates epoch seconds from epoch milliseconds. 1e11
// seconds is year 5138, 1e11 milliseconds is March 1973.
const epochMillisCutoff = 1e11

// ParseTimestamp converts a raw backend timestamp into its canonical key.
// Strings go through dateparse, which covers ISO/RFC, JavaScript
// Date.toString, US locale, compact YYYYMMDD and epoch digit strings. Numbers
// are epoch seconds or milliseconds. The canonical key is the UTC RFC3339Nano
// rendering of the instant.
func ParseTimestamp(raw any) (Key, time.Time, error) {
	t, err := parseTime(raw)
	if err != nil {
		return "", time.Time{}, err
	}
	t = t.UTC()
	return Key(t.Format(time.RFC3339Nano)), t, nil
}

// NormalizeTimestamp is ParseTimestamp with a fallback: input that cannot be
// parsed keys on its own trimmed string form. It never fails.
func NormalizeTimestamp(raw any) Key {
	k, _, err := ParseTimestamp(raw)
	if err != nil {
		return Key(rawString(raw))
	}
	return k
}

func parseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, &TimestampError{Raw: ""}
		}
		return v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, &TimestampError{Raw: ""}
		}
		return *v, nil
	case float64:
		return fromEpoch(v)
	case float32:
		return fromEpoch(float64(v))
	case int:
		return fromEpoch(float64(v))
	case int64:
		return fromEpoch(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, &TimestampError{Raw: v.String()}
		}
		return fromEpoch(f)
	case string:
		return parseTimeString(v)
	case nil:
		return time.Time{}, &TimestampError{Raw: ""}
	default:
		return time.Time{}, &TimestampError{Raw: rawString(raw)}
	}
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &TimestampError{Raw: s}
	}
	// toLocaleString renders "1/2/2024, 10:00:00 AM"
	clean := s
	if strings.Contains(clean, "/") {
		clean = strings.Replace(clean, ", ", " ", 1)
	}
	t, err := dateparse.ParseIn(clean, time.UTC)
	if err != nil {
		return time.Time{}, &TimestampError{Raw: s}
	}
	return t, nil
}

func fromEpoch(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return time.Time{}, &TimestampError{Raw: strconv.FormatFloat(f, 'f', -1, 64)}
	}
	if f < epochMillisCutoff {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))), nil
	}
	return time.UnixMilli(int64(f)), nil
}

func rawString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
