package postgres

import "github.com/jmoiron/sqlx"

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	symbol TEXT NOT NULL,
	symbol_name TEXT NOT NULL,
	side TEXT NOT NULL,
	price BIGINT NOT NULL,
	quantity BIGINT NOT NULL,
	total BIGINT NOT NULL,
	order_ref TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

CREATE TABLE IF NOT EXISTS daily_summaries (
	date TEXT PRIMARY KEY,
	open_capital BIGINT NOT NULL,
	close_capital BIGINT NOT NULL,
	profit BIGINT NOT NULL,
	profit_rate DOUBLE PRECISION NOT NULL,
	trade_count BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_states (
	user_id TEXT PRIMARY KEY,
	configured_capital BIGINT NOT NULL,
	realized_profit BIGINT NOT NULL,
	invested_principal BIGINT NOT NULL,
	per_position_cap BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// InitSchema bootstraps the tables on startup. Every statement is
// idempotent, so re-running on an existing database is safe.
func InitSchema(db *sqlx.DB) error {
	_, err := db.Exec(Schema)
	return err
}
