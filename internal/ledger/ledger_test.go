package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
)

type memoryStore struct {
	mu     sync.Mutex
	states map[string]model.LedgerState
	saves  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: make(map[string]model.LedgerState)}
}

func (s *memoryStore) Load(_ context.Context, userID string) (model.LedgerState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	return state, ok, nil
}

func (s *memoryStore) Save(_ context.Context, state model.LedgerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.UserID] = state
	s.saves++
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *memoryStore) {
	t.Helper()

	store := newMemoryStore()
	return NewLedger("tester", store, logger.NewNop()), store
}

func TestCanBuyLimits(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	ok, reason := l.CanBuy(100)
	assert.False(t, ok)
	assert.Equal(t, ReasonNotConfigured, reason)

	require.NoError(t, l.SetCapital(ctx, 5_000_000))
	require.NoError(t, l.SetPerPositionCap(ctx, 1_000_000))

	ok, _ = l.CanBuy(500_000)
	assert.True(t, ok)

	ok, reason = l.CanBuy(1_500_000)
	assert.False(t, ok)
	assert.Equal(t, ReasonCapExceeded, reason)

	ok, reason = l.CanBuy(6_000_000)
	assert.False(t, ok)
	assert.Equal(t, ReasonInsufficientCash, reason)
}

func TestBuySellRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 5_000_000))

	l.RegisterBuy(ctx, 1_000_000)

	s := l.Summary()
	assert.Equal(t, int64(4_000_000), s.AvailableCash)
	assert.Equal(t, int64(5_000_000), s.OperatingCapital)

	l.RegisterSell(ctx, 1_000_000, 1_200_000)

	s = l.Summary()
	assert.Equal(t, int64(200_000), s.RealizedProfit)
	assert.Equal(t, int64(5_200_000), s.OperatingCapital)
	assert.Equal(t, int64(5_200_000), s.AvailableCash)
	assert.Equal(t, int64(5_200_000), s.TotalManagedAsset)
}

func TestInvestedPrincipalNeverNegative(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 1_000_000))

	l.RegisterBuy(ctx, 300_000)
	l.RegisterSell(ctx, 500_000, 500_000)

	s := l.Summary()
	assert.Equal(t, s.OperatingCapital, s.AvailableCash, "principal floored at zero")

	l.ReleaseReservation(ctx, 999_999)
	s = l.Summary()
	assert.Equal(t, s.OperatingCapital, s.AvailableCash)
}

func TestWithdrawCapital(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 2_000_000))
	l.RegisterBuy(ctx, 1_500_000)

	err := l.WithdrawCapital(ctx, 1_000_000)
	assert.ErrorIs(t, err, InsufficientCashError)

	require.NoError(t, l.WithdrawCapital(ctx, 500_000))
	assert.Equal(t, int64(1_500_000), l.Summary().ConfiguredCapital)
}

func TestInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	assert.ErrorIs(t, l.SetCapital(ctx, 0), InvalidAmountError)
	assert.ErrorIs(t, l.SetCapital(ctx, -100), InvalidAmountError)
	assert.ErrorIs(t, l.AddCapital(ctx, 0), InvalidAmountError)
	assert.ErrorIs(t, l.WithdrawCapital(ctx, -5), InvalidAmountError)
	assert.ErrorIs(t, l.SetPerPositionCap(ctx, -1), InvalidAmountError)

	// nothing committed
	assert.Equal(t, int64(0), l.Summary().ConfiguredCapital)
}

func TestReserveIsAtomic(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 1_000_000))

	var granted int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Reserve(ctx, 600_000); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted, "only one reservation fits in available cash")
	assert.Equal(t, int64(400_000), l.Summary().AvailableCash)
}

func TestSummaryIdempotent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 3_000_000))
	l.RegisterBuy(ctx, 700_000)

	first := l.Summary()
	second := l.Summary()
	assert.Equal(t, first, second)
}

func TestProfitRate(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	assert.Zero(t, l.Summary().ProfitRate)

	require.NoError(t, l.SetCapital(ctx, 1_000_000))
	l.RegisterBuy(ctx, 500_000)
	l.RegisterSell(ctx, 500_000, 600_000)

	assert.InDelta(t, 100_000.0/1_100_000.0*100, l.Summary().ProfitRate, 1e-9)
}

func TestCalculateOrderQuantity(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 10_000_000))

	assert.Equal(t, int64(0), l.CalculateOrderQuantity(50_000), "no cap means caller decides")

	require.NoError(t, l.SetPerPositionCap(ctx, 1_000_000))
	assert.Equal(t, int64(20), l.CalculateOrderQuantity(50_000))
	assert.Equal(t, int64(33), l.CalculateOrderQuantity(30_000))
	assert.Equal(t, int64(0), l.CalculateOrderQuantity(0))
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	l := NewLedger("tester", store, logger.NewNop())
	require.NoError(t, l.SetCapital(ctx, 4_000_000))
	require.NoError(t, l.SetPerPositionCap(ctx, 800_000))
	l.RegisterBuy(ctx, 600_000)

	restored := NewLedger("tester", store, logger.NewNop())
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, l.Summary(), restored.Summary())
}

func TestRestoreMissingUser(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Restore(context.Background()))
	assert.Equal(t, int64(0), l.Summary().ConfiguredCapital)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)

	require.NoError(t, l.SetCapital(ctx, 2_000_000))
	l.RegisterBuy(ctx, 500_000)
	l.Reset(ctx)

	assert.Equal(t, model.LedgerSummary{}, l.Summary())

	state, ok, err := store.Load(ctx, "tester")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, state.ConfiguredCapital)
	assert.Zero(t, state.InvestedPrincipal)
}
