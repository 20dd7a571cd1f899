package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	tradeHeader = []string{"trade_id", "session_id", "symbol", "strategy", "entry_key", "entry_time", "entry_price", "exit_key", "exit_time", "exit_price", "realized_pl", "reason"}
	pnlHeader   = []string{"session_id", "cursor", "bar_key", "time", "price", "realized", "open", "total", "open_positions"}
)

// CSVJournal appends to two CSV files. It is safe for concurrent use.
type CSVJournal struct {
	mu     sync.Mutex
	trades *csv.Writer
	pnl    *csv.Writer
	tf, pf *os.File
}

func NewCSV(tradesPath, pnlPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	pf, err := os.Create(pnlPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{
		trades: csv.NewWriter(tf),
		pnl:    csv.NewWriter(pf),
		tf:     tf,
		pf:     pf,
	}
	if err := j.write(j.trades, tradeHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.pnl, pnlHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.TradeID,
		t.SessionID,
		t.Symbol,
		t.Strategy,
		t.EntryKey,
		ts(t.EntryTime),
		f(t.EntryPrice),
		t.ExitKey,
		ts(t.ExitTime),
		f(t.ExitPrice),
		t.RealizedPL.String(),
		t.Reason,
	})
}

func (j *CSVJournal) RecordPnL(s PnLSnapshot) error {
	return j.write(j.pnl, []string{
		s.SessionID,
		strconv.Itoa(s.Cursor),
		s.Key,
		ts(s.Time),
		f(s.Price),
		s.Realized.String(),
		s.Open.String(),
		s.Total.String(),
		strconv.Itoa(s.OpenPositions),
	})
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades.Flush()
	j.pnl.Flush()

	var first error
	for _, err := range []error{j.trades.Error(), j.pnl.Error(), j.tf.Close(), j.pf.Close()} {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
