package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	strategy TEXT NOT NULL,
	entry_key TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	exit_key TEXT NOT NULL,
	exit_time DATETIME NOT NULL,
	exit_price REAL NOT NULL,
	realized_pl TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id);
CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);

CREATE TABLE IF NOT EXISTS pnl (
	session_id TEXT NOT NULL,
	cursor INTEGER NOT NULL,
	bar_key TEXT NOT NULL,
	time DATETIME NOT NULL,
	price REAL NOT NULL,
	realized TEXT NOT NULL,
	open TEXT NOT NULL,
	total TEXT NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pnl_session ON pnl(session_id, cursor);
`
