package model

import "time"

// TradeRecord is an immutable journal row for one executed fill.
type TradeRecord struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"ts"`
	Code      string    `db:"symbol"`
	Name      string    `db:"symbol_name"`
	Side      Side      `db:"side"`
	Price     int64     `db:"price"`
	Quantity  int64     `db:"quantity"`
	Total     int64     `db:"total"`
	OrderRef  string    `db:"order_ref"`
	CreatedAt time.Time `db:"created_at"`
}

// DailySummary is keyed by calendar date and overwritten when re-saved.
type DailySummary struct {
	Date         string  `db:"date"` // YYYY-MM-DD
	OpenCapital  int64   `db:"open_capital"`
	CloseCapital int64   `db:"close_capital"`
	Profit       int64   `db:"profit"`
	ProfitRate   float64 `db:"profit_rate"`
	TradeCount   int64   `db:"trade_count"`
}
