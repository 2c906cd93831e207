package strategy

import (
	"context"
	"math"
	"sync"

	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
)

// BarProvider fetches historical daily candles, most-recent-first.
type BarProvider interface {
	GetDailyBars(ctx context.Context, code string) ([]model.Bar, error)
}

// Breakout holds the watch universe and computes entry targets from the
// prior-day range: target = today's open + k * (yesterday's high - low).
type Breakout struct {
	mu       sync.RWMutex
	universe map[string]*model.WatchEntry

	k          float64
	stopLoss   float64
	takeProfit float64

	bars   BarProvider
	logger logger.Logger
}

func NewBreakout(k, stopLoss, takeProfit float64, bars BarProvider, logger logger.Logger) *Breakout {
	return &Breakout{
		universe: make(map[string]*model.WatchEntry),
		k:        k,
		// thresholds are magnitudes, either sign convention is accepted on input
		stopLoss:   math.Abs(stopLoss),
		takeProfit: math.Abs(takeProfit),
		bars:       bars,
		logger:     logger,
	}
}

// SetUniverse replaces the whole universe with manually tracked symbols and
// computes a target for each.
func (b *Breakout) SetUniverse(ctx context.Context, codes []string) {
	b.mu.Lock()
	b.universe = make(map[string]*model.WatchEntry, len(codes))
	for _, code := range codes {
		b.universe[code] = &model.WatchEntry{
			Code:   code,
			Source: model.SourceManual,
			Status: model.Watching,
		}
	}
	b.mu.Unlock()

	for _, code := range codes {
		b.ComputeTargetPrice(ctx, code)
	}
}

// AddStock tracks a manually added symbol. Idempotent.
func (b *Breakout) AddStock(ctx context.Context, code string) {
	b.add(ctx, code, "", model.SourceManual, "")
}

// AddDiscovered tracks a symbol promoted by the discovery pipeline.
func (b *Breakout) AddDiscovered(ctx context.Context, code, name, profile string) {
	b.add(ctx, code, name, model.SourceDiscovered, profile)
}

func (b *Breakout) add(ctx context.Context, code, name string, source model.WatchSource, profile string) {
	b.mu.Lock()
	if _, ok := b.universe[code]; ok {
		b.mu.Unlock()
		return
	}
	b.universe[code] = &model.WatchEntry{
		Code:    code,
		Name:    name,
		Source:  source,
		Status:  model.Watching,
		Profile: profile,
	}
	b.mu.Unlock()

	b.ComputeTargetPrice(ctx, code)
}

func (b *Breakout) RemoveStock(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.universe, code)
}

func (b *Breakout) Contains(code string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.universe[code]
	return ok
}

// Entry returns a copy of the watch entry for code.
func (b *Breakout) Entry(code string) (model.WatchEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.universe[code]
	if !ok {
		return model.WatchEntry{}, false
	}

	return *entry, true
}

// Universe returns a snapshot of every watch entry.
func (b *Breakout) Universe() []model.WatchEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]model.WatchEntry, 0, len(b.universe))
	for _, entry := range b.universe {
		entries = append(entries, *entry)
	}

	return entries
}

// ComputeTargetPrice derives the entry target from the two most recent bars.
// Fewer than two bars is a degraded mode, not an error: the target stays
// unset and the symbol never signals a buy.
func (b *Breakout) ComputeTargetPrice(ctx context.Context, code string) {
	bars, err := b.bars.GetDailyBars(ctx, code)
	if err != nil {
		b.logger.Warnf("can't fetch daily bars for %s: %v", code, err)
		return
	}
	if len(bars) < 2 {
		b.logger.Warnf("not enough history for %s, target left unset", code)
		return
	}

	volatility := bars[1].High - bars[1].Low
	target := bars[0].Open + int64(float64(volatility)*b.k)

	b.SetTargetPrice(code, target)
}

func (b *Breakout) SetTargetPrice(code string, target int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.universe[code]; ok {
		entry.TargetPrice = target
		entry.HasTarget = true
	}
}

// ClearTarget removes the fixed target, e.g. after an exit order went out.
func (b *Breakout) ClearTarget(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.universe[code]; ok {
		entry.TargetPrice = 0
		entry.HasTarget = false
	}
}

func (b *Breakout) SetStatus(code string, status model.SymbolStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.universe[code]; ok {
		entry.Status = status
	}
}

// CheckBuySignal reports whether the price reached the symbol's target. No
// hysteresis, every tick at or above the target signals.
func (b *Breakout) CheckBuySignal(code string, currentPrice int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.universe[code]
	if !ok || !entry.HasTarget {
		return false
	}

	return currentPrice >= entry.TargetPrice
}

// Exit reasons returned by CheckSellSignal.
const (
	ReasonStopLoss   = "stop-loss"
	ReasonTakeProfit = "take-profit"
)

// CheckSellSignal evaluates the stop-loss and take-profit thresholds against
// the open position's profit rate.
func (b *Breakout) CheckSellSignal(currentPrice, buyPrice int64) (bool, string) {
	if buyPrice <= 0 {
		return false, ""
	}

	profitRate := float64(currentPrice-buyPrice) / float64(buyPrice) * 100

	if profitRate <= -b.stopLoss {
		return true, ReasonStopLoss
	}
	if profitRate >= b.takeProfit {
		return true, ReasonTakeProfit
	}

	return false, ""
}

// TakeProfitRate exposes the configured take-profit magnitude in percent.
func (b *Breakout) TakeProfitRate() float64 {
	return b.takeProfit
}
