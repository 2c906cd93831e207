package model

import "time"

// Quote is the current-price response decoded once at the broker boundary.
type Quote struct {
	Code       string
	Name       string
	Price      int64
	ChangeRate float64
	Volume     int64
	Open       int64
	High       int64
	Low        int64
}

// Bar is a single daily candle. Bar sequences are ordered most-recent-first:
// index 0 is today, index 1 is yesterday.
type Bar struct {
	Date   time.Time
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
}

type Holding struct {
	Code              string
	Name              string
	Quantity          int64
	AvgCost           int64
	CurrentPrice      int64
	UnrealizedPnL     int64
	UnrealizedPnLRate float64
}

type AccountBalance struct {
	CashDeposit          int64
	SettledAvailableCash int64
}

// Tick is a realtime trade event for a registered symbol. Strength is the
// tick-level buy-pressure indicator (>100 means buyers dominate).
type Tick struct {
	Code       string
	Price      int64
	ChangeRate float64
	Volume     int64
	Strength   float64
}

type FillEvent struct {
	Side     Side
	Code     string
	Name     string
	Quantity int64 // 0 means order acknowledged, not yet filled
	Price    int64
	OrderRef string
	Status   string
}

type ScanCandidate struct {
	Code    string
	Name    string
	Profile string
}
