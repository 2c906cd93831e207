package broker

import (
	"context"
	"errors"

	"github.com/seoulquant/autotrader/internal/model"
)

var (
	NotConnectedError = errors.New("broker not connected")
	TimeoutError      = errors.New("broker request timed out")
)

// ScanKind selects a broker-side surge query.
type ScanKind string

const (
	ScanVolumeSurge ScanKind = "volume-surge"
	ScanPriceSurge  ScanKind = "price-surge"
)

// Broker is the outbound brokerage capability. Request/response calls block
// until the broker answers or the context expires; fills and ticks arrive
// asynchronously on the event channels.
type Broker interface {
	Login(ctx context.Context) error
	Connected() bool

	GetCurrentPrice(ctx context.Context, code string) (model.Quote, error)
	GetDailyBars(ctx context.Context, code string) ([]model.Bar, error)
	GetHoldings(ctx context.Context, account string) ([]model.Holding, error)
	GetAccountBalance(ctx context.Context, account string) (model.AccountBalance, error)

	// SendOrder submits a market order when price is 0, limit otherwise.
	// A zero result code means the order was accepted.
	SendOrder(ctx context.Context, side model.Side, code string, quantity, price int64, account string) (int, error)

	Scan(ctx context.Context, kind ScanKind) ([]model.ScanCandidate, error)

	Fills() <-chan model.FillEvent
	Ticks() <-chan model.Tick
}
