package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
)

var (
	InvalidAmountError    = errors.New("invalid amount")
	InsufficientCashError = errors.New("insufficient available cash")
	CapExceededError      = errors.New("per-position cap exceeded")
)

// Buy rejection reasons returned by CanBuy.
const (
	ReasonNotConfigured    = "capital not configured"
	ReasonInsufficientCash = "insufficient cash"
	ReasonCapExceeded      = "per-position cap exceeded"
)

// Store persists ledger snapshots keyed by user id.
type Store interface {
	Load(ctx context.Context, userID string) (model.LedgerState, bool, error)
	Save(ctx context.Context, state model.LedgerState) error
}

// Ledger tracks the capital the bot is allowed to risk. Configured capital
// changes only through the explicit Set/Add/Withdraw operations; invested
// principal changes only through buy/sell registration. Fill handlers and the
// polling loop run on separate goroutines, so every state transition takes the
// mutex.
type Ledger struct {
	mu sync.Mutex

	userID            string
	configuredCapital int64
	realizedProfit    int64
	investedPrincipal int64
	perPositionCap    int64

	store  Store
	logger logger.Logger
}

func NewLedger(userID string, store Store, logger logger.Logger) *Ledger {
	return &Ledger{
		userID: userID,
		store:  store,
		logger: logger,
	}
}

// Restore loads the persisted snapshot for the ledger's user. A missing row is
// not an error, the ledger simply starts from the zero state.
func (l *Ledger) Restore(ctx context.Context) error {
	state, ok, err := l.store.Load(ctx, l.userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.configuredCapital = state.ConfiguredCapital
	l.realizedProfit = state.RealizedProfit
	l.investedPrincipal = state.InvestedPrincipal
	l.perPositionCap = state.PerPositionCap

	return nil
}

func (l *Ledger) SetCapital(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return InvalidAmountError
	}

	l.mu.Lock()
	l.configuredCapital = amount
	l.mu.Unlock()

	l.persist(ctx)
	return nil
}

func (l *Ledger) AddCapital(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return InvalidAmountError
	}

	l.mu.Lock()
	l.configuredCapital += amount
	l.mu.Unlock()

	l.persist(ctx)
	return nil
}

// WithdrawCapital removes idle cash from the pool. Principal currently in the
// market cannot be withdrawn.
func (l *Ledger) WithdrawCapital(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return InvalidAmountError
	}

	l.mu.Lock()
	if amount > l.availableCashLocked() {
		l.mu.Unlock()
		return InsufficientCashError
	}
	l.configuredCapital -= amount
	l.mu.Unlock()

	l.persist(ctx)
	return nil
}

func (l *Ledger) SetPerPositionCap(ctx context.Context, amount int64) error {
	if amount < 0 {
		return InvalidAmountError
	}

	l.mu.Lock()
	l.perPositionCap = amount
	l.mu.Unlock()

	l.persist(ctx)
	return nil
}

// CanBuy reports whether amount can be committed right now and, when it
// cannot, a human-readable reason. It takes no reservation; use Reserve when
// the answer has to stay true until the order goes out.
func (l *Ledger) CanBuy(amount int64) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.canBuyLocked(amount)
}

func (l *Ledger) canBuyLocked(amount int64) (bool, string) {
	if l.configuredCapital <= 0 {
		return false, ReasonNotConfigured
	}
	if amount > l.availableCashLocked() {
		return false, ReasonInsufficientCash
	}
	if l.perPositionCap > 0 && amount > l.perPositionCap {
		return false, ReasonCapExceeded
	}

	return true, ""
}

// Reserve is an atomic check-and-commit: the affordability check and the
// principal increase happen under one lock acquisition, so two concurrent
// callers can never both pass the check against the same cash.
func (l *Ledger) Reserve(ctx context.Context, amount int64) (bool, string) {
	l.mu.Lock()
	ok, reason := l.canBuyLocked(amount)
	if !ok {
		l.mu.Unlock()
		return false, reason
	}
	l.investedPrincipal += amount
	l.mu.Unlock()

	l.persist(ctx)
	return true, ""
}

// RegisterBuy commits amount without any affordability check. Callers that
// need the check must use Reserve instead.
func (l *Ledger) RegisterBuy(ctx context.Context, amount int64) {
	l.mu.Lock()
	l.investedPrincipal += amount
	l.mu.Unlock()

	l.persist(ctx)
}

// RegisterSell closes a round-trip. This is the only place realized profit
// changes. Invested principal is floored at zero to absorb reconciliation
// drift between the ledger and broker-reported fills.
func (l *Ledger) RegisterSell(ctx context.Context, buyAmount, sellAmount int64) {
	l.mu.Lock()
	l.investedPrincipal = max(0, l.investedPrincipal-buyAmount)
	l.realizedProfit += sellAmount - buyAmount
	l.mu.Unlock()

	l.persist(ctx)
}

// ReleaseReservation undoes a reservation for a buy order that was rejected
// or cancelled before filling.
func (l *Ledger) ReleaseReservation(ctx context.Context, amount int64) {
	l.mu.Lock()
	l.investedPrincipal = max(0, l.investedPrincipal-amount)
	l.mu.Unlock()

	l.persist(ctx)
}

// CalculateOrderQuantity returns how many shares fit under the per-position
// cap at the given price. With no cap configured it returns 0 and the caller
// decides the unlimited-mode quantity.
func (l *Ledger) CalculateOrderQuantity(price int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.perPositionCap == 0 || price <= 0 {
		return 0
	}

	return l.perPositionCap / price
}

func (l *Ledger) Summary() model.LedgerSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	operating := l.configuredCapital + l.realizedProfit
	available := operating - l.investedPrincipal

	var profitRate float64
	if operating > 0 {
		profitRate = float64(l.realizedProfit) / float64(operating) * 100
	}

	return model.LedgerSummary{
		ConfiguredCapital: l.configuredCapital,
		OperatingCapital:  operating,
		AvailableCash:     available,
		TotalManagedAsset: l.investedPrincipal + available,
		RealizedProfit:    l.realizedProfit,
		ProfitRate:        profitRate,
		PerPositionCap:    l.perPositionCap,
	}
}

// Reset wipes the ledger back to the zero state. Only an explicit user action
// should reach this.
func (l *Ledger) Reset(ctx context.Context) {
	l.mu.Lock()
	l.configuredCapital = 0
	l.realizedProfit = 0
	l.investedPrincipal = 0
	l.perPositionCap = 0
	l.mu.Unlock()

	l.persist(ctx)
}

func (l *Ledger) availableCashLocked() int64 {
	return l.configuredCapital + l.realizedProfit - l.investedPrincipal
}

// persist saves the current snapshot. A storage failure is logged and
// swallowed so a flaky database never blocks the trading loop; the in-memory
// state stays authoritative until the next successful save.
func (l *Ledger) persist(ctx context.Context) {
	l.mu.Lock()
	state := model.LedgerState{
		UserID:            l.userID,
		ConfiguredCapital: l.configuredCapital,
		RealizedProfit:    l.realizedProfit,
		InvestedPrincipal: l.investedPrincipal,
		PerPositionCap:    l.perPositionCap,
		UpdatedAt:         time.Now(),
	}
	l.mu.Unlock()

	if err := l.store.Save(ctx, state); err != nil {
		l.logger.Errorf("can't persist ledger state for %s: %v", l.userID, err)
	}
}
