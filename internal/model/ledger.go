package model

import "time"

// LedgerState is the persisted snapshot of the capital ledger. Derived values
// (operating capital, available cash) are intentionally not stored, they are
// re-derived from these fields on every read.
type LedgerState struct {
	UserID            string    `db:"user_id"`
	ConfiguredCapital int64     `db:"configured_capital"`
	RealizedProfit    int64     `db:"realized_profit"`
	InvestedPrincipal int64     `db:"invested_principal"`
	PerPositionCap    int64     `db:"per_position_cap"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type LedgerSummary struct {
	ConfiguredCapital int64
	OperatingCapital  int64
	AvailableCash     int64
	TotalManagedAsset int64
	RealizedProfit    int64
	ProfitRate        float64
	PerPositionCap    int64
}
