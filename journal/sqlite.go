package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordTrade inserts the trade, replacing an earlier record with the same
// id.
func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO trades
		(trade_id, session_id, symbol, strategy, entry_key, entry_time, entry_price,
		 exit_key, exit_time, exit_price, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.SessionID, t.Symbol, t.Strategy,
		t.EntryKey, t.EntryTime.UTC(), t.EntryPrice,
		t.ExitKey, t.ExitTime.UTC(), t.ExitPrice,
		t.RealizedPL.String(), t.Reason,
	)
	return err
}

func (j *SQLite) RecordPnL(s PnLSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO pnl
		(session_id, cursor, bar_key, time, price, realized, open, total, open_positions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.Cursor, s.Key, s.Time.UTC(), s.Price,
		s.Realized.String(), s.Open.String(), s.Total.String(), s.OpenPositions,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
