package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, session_id, symbol, strategy, entry_key, entry_time, entry_price,
	exit_key, exit_time, exit_price, realized_pl, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.SessionID,
		&rec.Symbol,
		&rec.Strategy,
		&rec.EntryKey,
		&rec.EntryTime,
		&rec.EntryPrice,
		&rec.ExitKey,
		&rec.ExitTime,
		&rec.ExitPrice,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.listTrades(`
		SELECT `+tradeColumns+` FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start.UTC(), end.UTC())
}

// ListTradesBySession returns a session's trades in exit order.
func (j *SQLite) ListTradesBySession(sessionID string) ([]TradeRecord, error) {
	return j.listTrades(`
		SELECT `+tradeColumns+` FROM trades
		WHERE session_id = ?
		ORDER BY exit_time ASC, trade_id ASC`, sessionID)
}

func (j *SQLite) listTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPnLBySession returns a session's snapshots in cursor order.
func (j *SQLite) ListPnLBySession(sessionID string) ([]PnLSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT session_id, cursor, bar_key, time, price, realized, open, total, open_positions
		FROM pnl
		WHERE session_id = ?
		ORDER BY cursor ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PnLSnapshot
	for rows.Next() {
		var s PnLSnapshot
		if err := rows.Scan(
			&s.SessionID,
			&s.Cursor,
			&s.Key,
			&s.Time,
			&s.Price,
			&s.Realized,
			&s.Open,
			&s.Total,
			&s.OpenPositions,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
