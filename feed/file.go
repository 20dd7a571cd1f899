package feed

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/signals"
)

// FileLoader reads feeds saved to disk: CSV with a header row
// (time,open,high,low,close,volume[,signal]) or a saved backend JSON
// response. When Strategy is set, bars are labeled by it after loading.
type FileLoader struct {
	Strategy signals.Strategy
}

func (l *FileLoader) Load(ctx context.Context, q Query) (*market.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.File == "" {
		return nil, fmt.Errorf("file source requires a file path")
	}

	fh, err := os.Open(q.File)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	defer fh.Close()

	var f *market.Feed
	switch strings.ToLower(filepath.Ext(q.File)) {
	case ".json":
		f, err = ReadJSON(fh, q)
	default:
		f, err = ReadCSV(fh, q)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.File, err)
	}
	if f.DataSource == "" {
		f.DataSource = "file"
	}

	if l.Strategy != nil {
		signals.Annotate(f, l.Strategy)
	}
	return f, nil
}

// ReadJSON decodes a saved backend response or a bare array of bars.
func ReadJSON(r io.Reader, q Query) (*market.Feed, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var wr wireResponse
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &wr.Data); err != nil {
			return nil, fmt.Errorf("decode bars: %w", err)
		}
	} else if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if wr.Success != nil && !*wr.Success {
		return nil, fmt.Errorf("%w: %s", ErrBackend, wr.failure())
	}
	return wr.toFeed(q), nil
}

var csvColumns = map[string]string{
	"time":      "time",
	"timestamp": "time",
	"date":      "time",
	"datetime":  "time",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"volume":    "volume",
	"signal":    "signal",
}

// ReadCSV reads bars from CSV. The header names the columns; time and close
// are required.
func ReadCSV(r io.Reader, q Query) (*market.Feed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, err
	}

	cols := map[string]int{}
	for i, h := range header {
		if name, ok := csvColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	if _, ok := cols["time"]; !ok {
		return nil, fmt.Errorf("csv header has no time column")
	}
	if _, ok := cols["close"]; !ok {
		return nil, fmt.Errorf("csv header has no close column")
	}

	f := &market.Feed{
		Symbol:     q.Symbol,
		Strategy:   q.Strategy,
		Resolution: string(q.Resolution),
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		num := func(name string) (float64, error) {
			s := field(name)
			if s == "" {
				return 0, nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: %s %q: %w", line, name, s, err)
			}
			return v, nil
		}

		var bar market.PriceBar
		stamp := field("time")
		key, t, perr := market.ParseTimestamp(stamp)
		if perr != nil {
			key = market.NormalizeTimestamp(stamp)
		}
		bar.Key, bar.Time = key, t

		for name, dst := range map[string]*float64{
			"open": &bar.Open, "high": &bar.High, "low": &bar.Low,
			"close": &bar.Close, "volume": &bar.Volume,
		} {
			if *dst, err = num(name); err != nil {
				return nil, err
			}
		}
		if s := field("signal"); s != "" {
			sig, err := market.ParseSignal(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			bar.Signal = sig
		}
		f.Bars = append(f.Bars, bar)
	}

	normalize(f)
	return f, nil
}

// WriteCSV writes bars in the format ReadCSV reads.
func WriteCSV(w io.Writer, f *market.Feed) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume", "signal"}); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range f.Bars {
		sig := ""
		if b.Signal != market.None {
			sig = b.Signal.String()
		}
		if err := cw.Write([]string{string(b.Key), ff(b.Open), ff(b.High), ff(b.Low), ff(b.Close), ff(b.Volume), sig}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Router sends file queries to Files and everything else to Remote.
type Router struct {
	Remote Loader
	Files  Loader
}

func (r *Router) Load(ctx context.Context, q Query) (*market.Feed, error) {
	if q.Source == SourceFile {
		if r.Files == nil {
			return nil, fmt.Errorf("file feeds are not enabled")
		}
		return r.Files.Load(ctx, q)
	}
	if r.Remote == nil {
		return nil, fmt.Errorf("no backend configured")
	}
	return r.Remote.Load(ctx, q)
}
