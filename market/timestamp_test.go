package market

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := Key("2024-01-02T10:00:00Z")

	tests := []struct {
		name string
		raw  any
	}{
		{"rfc3339", "2024-01-02T10:00:00Z"},
		{"rfc3339_offset", "2024-01-02T12:00:00+02:00"},
		{"rfc3339_millis", "2024-01-02T10:00:00.000Z"},
		{"python_isoformat", "2024-01-02 10:00:00+00:00"},
		{"naive_iso", "2024-01-02T10:00:00"},
		{"naive_space", "2024-01-02 10:00:00"},
		{"naive_minutes", "2024-01-02 10:00"},
		{"js_date_string", "Tue Jan 02 2024 10:00:00 GMT+0000 (Coordinated Universal Time)"},
		{"js_date_string_offset", "Tue Jan 02 2024 05:00:00 GMT-0500 (Eastern Standard Time)"},
		{"utc_string", "Tue, 02 Jan 2024 10:00:00 GMT"},
		{"locale_us", "1/2/2024, 10:00:00 AM"},
		{"locale_us_no_comma", "1/2/2024 10:00:00 AM"},
		{"epoch_seconds_number", float64(1704189600)},
		{"epoch_millis_number", float64(1704189600000)},
		{"epoch_seconds_string", "1704189600"},
		{"epoch_millis_string", " 1704189600000 "},
		{"epoch_int64", int64(1704189600)},
		{"json_number", json.Number("1704189600000")},
		{"time_value", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			k, ts, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, want, k)
			assert.Equal(t, time.UTC, ts.Location())
		})
	}
}

func TestParseTimestampDateOnly(t *testing.T) {
	t.Parallel()

	k, ts, err := ParseTimestamp("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, Key("2024-01-02T00:00:00Z"), k)
	assert.Equal(t, 2024, ts.Year())

	for _, raw := range []string{"1/2/2024", "20240102"} {
		k, _, err = ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, Key("2024-01-02T00:00:00Z"), k, raw)
	}

	k, _, err = ParseTimestamp("2024")
	require.NoError(t, err)
	assert.Equal(t, Key("2024-01-01T00:00:00Z"), k)
}

func TestParseTimestampKeepsSubseconds(t *testing.T) {
	t.Parallel()

	k, _, err := ParseTimestamp(float64(1704189600123))
	require.NoError(t, err)
	assert.Equal(t, Key("2024-01-02T10:00:00.123Z"), k)
}

func TestParseTimestampErrors(t *testing.T) {
	t.Parallel()

	for _, raw := range []any{"", "  ", "not a date", "2024-13-45", nil, -5.0, struct{}{}} {
		_, _, err := ParseTimestamp(raw)
		require.Error(t, err, "%#v", raw)
		assert.True(t, errors.Is(err, ErrUnparseableTimestamp))

		var te *TimestampError
		assert.True(t, errors.As(err, &te))
	}
}

func TestNormalizeTimestampFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("2024-01-02T10:00:00Z"), NormalizeTimestamp("2024-01-02T10:00:00Z"))
	assert.Equal(t, Key("bar-17"), NormalizeTimestamp("  bar-17 "))
	assert.Equal(t, Key(""), NormalizeTimestamp(nil))

	// equal raw strings still compare equal through the fallback
	assert.Equal(t, NormalizeTimestamp("week 3"), NormalizeTimestamp("week 3"))
}

func TestNormalizeTimestampCrossFormatEquality(t *testing.T) {
	t.Parallel()

	iso := NormalizeTimestamp("2024-03-01T14:30:00Z")
	epoch := NormalizeTimestamp(float64(1709303400000))
	js := NormalizeTimestamp("Fri Mar 01 2024 14:30:00 GMT+0000 (Coordinated Universal Time)")

	assert.Equal(t, iso, epoch)
	assert.Equal(t, iso, js)

	// a daily bar and its signal stamped in different date forms
	day := NormalizeTimestamp("2024-01-02")
	assert.Equal(t, day, NormalizeTimestamp("20240102"))
	assert.Equal(t, day, NormalizeTimestamp("1/2/2024"))
}
