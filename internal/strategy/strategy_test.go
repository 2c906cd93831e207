package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
)

type fakeBars struct {
	bars map[string][]model.Bar
	err  error
}

func (f *fakeBars) GetDailyBars(_ context.Context, code string) ([]model.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[code], nil
}

func newTestBreakout(bars *fakeBars) *Breakout {
	return NewBreakout(0.5, 2.0, 5.0, bars, logger.NewNop())
}

func TestComputeTargetPrice(t *testing.T) {
	bars := &fakeBars{bars: map[string][]model.Bar{
		"005930": {
			{Open: 10000, High: 10400, Low: 9900, Close: 10100},
			{Open: 10100, High: 10500, Low: 10000, Close: 10300},
		},
	}}

	b := newTestBreakout(bars)
	b.AddStock(context.Background(), "005930")

	entry, ok := b.Entry("005930")
	require.True(t, ok)
	require.True(t, entry.HasTarget)
	assert.Equal(t, int64(10250), entry.TargetPrice)

	assert.True(t, b.CheckBuySignal("005930", 10250))
	assert.False(t, b.CheckBuySignal("005930", 10249))
}

func TestComputeTargetPriceDegraded(t *testing.T) {
	bars := &fakeBars{bars: map[string][]model.Bar{
		"035720": {{Open: 50000, High: 51000, Low: 49500, Close: 50500}},
	}}

	b := newTestBreakout(bars)
	b.AddStock(context.Background(), "035720")

	entry, ok := b.Entry("035720")
	require.True(t, ok)
	assert.False(t, entry.HasTarget)
	assert.False(t, b.CheckBuySignal("035720", 1_000_000), "no target never signals")
}

func TestComputeTargetPriceFetchError(t *testing.T) {
	b := newTestBreakout(&fakeBars{err: errors.New("broker down")})
	b.AddStock(context.Background(), "005930")

	entry, ok := b.Entry("005930")
	require.True(t, ok, "symbol stays in universe without a target")
	assert.False(t, entry.HasTarget)
}

func TestCheckSellSignalSignNormalization(t *testing.T) {
	for _, stopLoss := range []float64{2.0, -2.0} {
		b := NewBreakout(0.5, stopLoss, 5.0, &fakeBars{}, logger.NewNop())

		// -2.0% exactly
		ok, reason := b.CheckSellSignal(9800, 10000)
		assert.True(t, ok)
		assert.Equal(t, ReasonStopLoss, reason)

		ok, _ = b.CheckSellSignal(9801, 10000)
		assert.False(t, ok)
	}
}

func TestCheckSellSignalTakeProfit(t *testing.T) {
	b := newTestBreakout(&fakeBars{})

	ok, reason := b.CheckSellSignal(10500, 10000)
	assert.True(t, ok)
	assert.Equal(t, ReasonTakeProfit, reason)

	ok, _ = b.CheckSellSignal(10499, 10000)
	assert.False(t, ok)

	ok, _ = b.CheckSellSignal(10000, 0)
	assert.False(t, ok, "unknown cost basis never signals")
}

func TestSetUniverse(t *testing.T) {
	bars := &fakeBars{bars: map[string][]model.Bar{
		"005930": {
			{Open: 10000, High: 10400, Low: 9900, Close: 10100},
			{Open: 10100, High: 10500, Low: 10000, Close: 10300},
		},
	}}

	b := newTestBreakout(bars)
	b.AddStock(context.Background(), "000660")
	b.SetUniverse(context.Background(), []string{"005930"})

	assert.False(t, b.Contains("000660"), "replaced universe drops old members")
	assert.True(t, b.Contains("005930"))
}

func TestAddStockIdempotent(t *testing.T) {
	b := newTestBreakout(&fakeBars{})

	b.AddStock(context.Background(), "005930")
	b.SetTargetPrice("005930", 12345)
	b.AddStock(context.Background(), "005930")

	entry, _ := b.Entry("005930")
	assert.Equal(t, int64(12345), entry.TargetPrice, "re-add keeps existing state")

	b.RemoveStock("005930")
	b.RemoveStock("005930")
	assert.False(t, b.Contains("005930"))
}

func TestStatusAndTargetLifecycle(t *testing.T) {
	b := newTestBreakout(&fakeBars{})
	b.AddStock(context.Background(), "005930")

	b.SetStatus("005930", model.Ordering)
	entry, _ := b.Entry("005930")
	assert.Equal(t, model.Ordering, entry.Status)

	b.SetTargetPrice("005930", 10250)
	b.ClearTarget("005930")
	entry, _ = b.Entry("005930")
	assert.False(t, entry.HasTarget)
	assert.Zero(t, entry.TargetPrice)
}
