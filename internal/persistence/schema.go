package persistence

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	balance INTEGER NOT NULL CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL REFERENCES accounts(id),
	symbol TEXT NOT NULL,
	qty INTEGER NOT NULL CHECK (qty >= 0),
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS instruments (
	symbol TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price INTEGER NOT NULL CHECK (price > 0)
);

CREATE TABLE IF NOT EXISTS trades (
	seq_id INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id TEXT NOT NULL UNIQUE,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	symbol TEXT NOT NULL,
	qty INTEGER NOT NULL CHECK (qty > 0),
	price INTEGER NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	executed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id, seq_id);
`
