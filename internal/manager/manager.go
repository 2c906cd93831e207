package manager

import (
	"context"
	"sync"
	"time"

	"github.com/seoulquant/autotrader/internal/broker"
	"github.com/seoulquant/autotrader/internal/config"
	"github.com/seoulquant/autotrader/internal/events"
	"github.com/seoulquant/autotrader/internal/ledger"
	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
	"github.com/seoulquant/autotrader/internal/strategy"
)

// Journal is the slice of the trade journal the manager writes to.
type Journal interface {
	Record(ctx context.Context, ts time.Time, code, name string, side model.Side, price, quantity int64, orderRef string) (int64, error)
	BotSymbols(ctx context.Context) (map[string]struct{}, error)
	TradeCountOn(ctx context.Context, day time.Time) (int64, error)
	UpsertDailySummary(ctx context.Context, summary model.DailySummary) error
}

// BuyOutcome is the result of one buy-entry evaluation.
type BuyOutcome string

const (
	OutcomeRemove   BuyOutcome = "REMOVE" // symbol disqualified, drop it from the watchlist
	OutcomeSkip     BuyOutcome = "SKIP"
	OutcomeRejected BuyOutcome = "REJECTED"
	OutcomeOrdered  BuyOutcome = "ORDERED"
)

// Manager is the event-driven control loop. It consumes ticks and fills from
// the broker, asks the ledger whether candidate orders are affordable, asks
// the strategy whether entry/exit conditions hold, and reconciles confirmed
// fills back into the ledger and the journal.
type Manager struct {
	ledger   *ledger.Ledger
	journal  Journal
	strategy *strategy.Breakout
	broker   broker.Broker
	hub      *events.Hub
	logger   logger.Logger

	account       string
	maxChangeRate float64
	minIntensity  float64
	pollInterval  time.Duration
	refresh       time.Duration

	openCapital int64

	// single-writer caches, written only from the Run goroutine
	mu         sync.RWMutex
	prices     map[string]int64
	strengths  map[string]float64
	holdings   map[string]model.Holding
	botSymbols map[string]struct{}
	reserved   map[string]reservation
}

// reservation is the capital held for a submitted buy order, trued up against
// fills share by share so partial fills keep the remainder reserved.
type reservation struct {
	amount   int64
	quantity int64
}

func NewManager(
	cfg config.AppConfig,
	ldg *ledger.Ledger,
	jnl Journal,
	strat *strategy.Breakout,
	brk broker.Broker,
	hub *events.Hub,
	log logger.Logger,
) *Manager {
	return &Manager{
		ledger:        ldg,
		journal:       jnl,
		strategy:      strat,
		broker:        brk,
		hub:           hub,
		logger:        log,
		account:       cfg.Account,
		maxChangeRate: cfg.Strategy.MaxChangeRate,
		minIntensity:  cfg.Strategy.MinIntensity,
		pollInterval:  cfg.PollInterval,
		refresh:       cfg.RefreshInterval,
		prices:        make(map[string]int64),
		strengths:     make(map[string]float64),
		holdings:      make(map[string]model.Holding),
		botSymbols:    make(map[string]struct{}),
		reserved:      make(map[string]reservation),
	}
}

// Run drives the loop until ctx is cancelled. Broker events, the watchlist
// poll and the holdings refresh are all serialized here, so the handlers
// never run concurrently with each other.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.restoreBotSymbols(ctx); err != nil {
		return err
	}
	m.refreshHoldings(ctx)
	m.openCapital = m.ledger.Summary().OperatingCapital

	pollTicker := time.NewTicker(m.pollInterval)
	defer pollTicker.Stop()
	refreshTicker := time.NewTicker(m.refresh)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.WriteDailySummary(context.WithoutCancel(ctx))
			return ctx.Err()
		case fill := <-m.broker.Fills():
			m.onFill(ctx, fill)
		case tick := <-m.broker.Ticks():
			m.onTick(ctx, tick)
		case <-pollTicker.C:
			m.pollWatchlist(ctx)
		case <-refreshTicker.C:
			m.refreshHoldings(ctx)
		}
	}
}

// restoreBotSymbols rebuilds the set of symbols this bot has bought, so ticks
// for the owner's manual positions never trigger bot sells.
func (m *Manager) restoreBotSymbols(ctx context.Context) error {
	symbols, err := m.journal.BotSymbols(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.botSymbols = symbols
	m.mu.Unlock()

	return nil
}

func (m *Manager) refreshHoldings(ctx context.Context) {
	if !m.broker.Connected() {
		return
	}

	holdings, err := m.broker.GetHoldings(ctx, m.account)
	if err != nil {
		m.logger.Warnf("can't refresh holdings: %v", err)
		return
	}

	snapshot := make(map[string]model.Holding, len(holdings))
	for _, h := range holdings {
		snapshot[h.Code] = h
	}

	universe := make(map[string]struct{})
	for _, entry := range m.strategy.Universe() {
		universe[entry.Code] = struct{}{}
	}

	m.mu.Lock()
	m.holdings = snapshot
	// drop cache entries for symbols that left both the watchlist and the
	// account, the feeds never shrink them otherwise
	for code := range m.prices {
		if _, held := snapshot[code]; held {
			continue
		}
		if _, watched := universe[code]; watched {
			continue
		}
		delete(m.prices, code)
		delete(m.strengths, code)
	}
	m.mu.Unlock()

	m.hub.Refresh()
}

// HoldingFor is the accessor other components use instead of reaching into
// the snapshot directly.
func (m *Manager) HoldingFor(code string) (model.Holding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.holdings[code]
	return h, ok
}

func (m *Manager) LastPrice(code string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prices[code]
	return p, ok
}

func (m *Manager) isBotSymbol(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.botSymbols[code]
	return ok
}

// OnTick updates the price cache and evaluates the exit rules for open
// bot-held positions.
func (m *Manager) OnTick(ctx context.Context, tick model.Tick) {
	m.onTick(ctx, tick)
}

func (m *Manager) onTick(ctx context.Context, tick model.Tick) {
	m.mu.Lock()
	m.prices[tick.Code] = tick.Price
	m.strengths[tick.Code] = tick.Strength
	m.mu.Unlock()

	if !m.isBotSymbol(tick.Code) {
		return
	}

	holding, ok := m.HoldingFor(tick.Code)
	if !ok || holding.Quantity <= 0 {
		return
	}

	// the fixed target stored at buy-fill time wins over the percent rules:
	// it is tick-rounded down, so it can trip before the take-profit rate does
	sell, reason := false, ""
	if entry, found := m.strategy.Entry(tick.Code); found && entry.HasTarget && tick.Price >= entry.TargetPrice {
		sell, reason = true, strategy.ReasonTakeProfit
	} else {
		sell, reason = m.strategy.CheckSellSignal(tick.Price, holding.AvgCost)
	}
	if !sell {
		return
	}

	m.logger.Infof("sell signal for %s (%s): price=%d avg=%d", tick.Code, reason, tick.Price, holding.AvgCost)

	rc, err := m.broker.SendOrder(ctx, model.Sell, tick.Code, holding.Quantity, 0, m.account)
	if err != nil || rc != 0 {
		m.logger.Errorf("can't submit sell for %s: rc=%d err=%v", tick.Code, rc, err)
		return
	}

	m.strategy.ClearTarget(tick.Code)
	m.strategy.SetStatus(tick.Code, model.Ordering)
	m.hub.StatusChange(tick.Code, string(model.Ordering), reason)
}

// OnFill reconciles a broker fill event.
func (m *Manager) OnFill(ctx context.Context, fill model.FillEvent) {
	m.onFill(ctx, fill)
}

func (m *Manager) onFill(ctx context.Context, fill model.FillEvent) {
	// quantity 0 is an order acknowledgement, not an execution
	if fill.Quantity == 0 {
		return
	}

	switch fill.Side {
	case model.Buy:
		m.onBuyFill(ctx, fill)
	case model.Sell:
		m.onSellFill(ctx, fill)
	}
}

func (m *Manager) onBuyFill(ctx context.Context, fill model.FillEvent) {
	m.mu.Lock()
	m.botSymbols[fill.Code] = struct{}{}
	m.mu.Unlock()

	m.trueUpReservation(ctx, fill)

	// fix the exit target at the filled price plus the take-profit margin,
	// snapped to the tick grid
	target := int64(float64(fill.Price) * (1 + m.strategy.TakeProfitRate()/100))
	target = RoundDownToTick(target)
	m.strategy.SetTargetPrice(fill.Code, target)
	m.strategy.SetStatus(fill.Code, model.Filled)

	if _, err := m.journal.Record(ctx, time.Now(), fill.Code, fill.Name, model.Buy, fill.Price, fill.Quantity, fill.OrderRef); err != nil {
		m.logger.Errorf("can't journal buy fill for %s: %v", fill.Code, err)
	}

	m.logger.Infof("buy filled: %s x%d @ %d, exit target %d", fill.Code, fill.Quantity, fill.Price, target)
	m.hub.StatusChange(fill.Code, string(model.Filled), "")
	m.hub.Refresh()
}

func (m *Manager) onSellFill(ctx context.Context, fill model.FillEvent) {
	sellAmount := fill.Price * fill.Quantity

	// cost basis comes from the holdings snapshot; when it is missing the
	// trade is still recorded, at zero profit
	buyAmount := sellAmount
	if holding, ok := m.HoldingFor(fill.Code); ok && holding.AvgCost > 0 {
		buyAmount = holding.AvgCost * fill.Quantity
	} else {
		m.logger.Warnf("no cost basis for %s, recording sell with zero profit", fill.Code)
	}

	m.ledger.RegisterSell(ctx, buyAmount, sellAmount)

	if _, err := m.journal.Record(ctx, time.Now(), fill.Code, fill.Name, model.Sell, fill.Price, fill.Quantity, fill.OrderRef); err != nil {
		m.logger.Errorf("can't journal sell fill for %s: %v", fill.Code, err)
	}

	m.strategy.SetStatus(fill.Code, model.Watching)
	m.logger.Infof("sell filled: %s x%d @ %d, pnl=%d", fill.Code, fill.Quantity, fill.Price, sellAmount-buyAmount)
	m.hub.StatusChange(fill.Code, string(model.Watching), "")
	m.hub.Refresh()
}

// trueUpReservation replaces the quoted-price reservation with the executed
// cost for the filled shares only, so a partial fill leaves the unfilled
// remainder reserved. Shares filled beyond the reservation register at cost.
func (m *Manager) trueUpReservation(ctx context.Context, fill model.FillEvent) {
	m.mu.Lock()
	res, ok := m.reserved[fill.Code]
	if !ok || res.quantity <= 0 {
		m.mu.Unlock()
		return
	}

	perShare := res.amount / res.quantity
	covered := min(fill.Quantity, res.quantity)
	reservedPortion := perShare * covered

	res.amount -= reservedPortion
	res.quantity -= covered
	if res.quantity <= 0 {
		delete(m.reserved, fill.Code)
	} else {
		m.reserved[fill.Code] = res
	}
	m.mu.Unlock()

	if diff := reservedPortion - fill.Price*covered; diff > 0 {
		m.ledger.ReleaseReservation(ctx, diff)
	} else if diff < 0 {
		m.ledger.RegisterBuy(ctx, -diff)
	}

	if extra := fill.Quantity - covered; extra > 0 {
		m.ledger.RegisterBuy(ctx, fill.Price*extra)
	}
}

// pollWatchlist fetches a quote for every symbol still in the watching state
// and evaluates the entry rules.
func (m *Manager) pollWatchlist(ctx context.Context) {
	if !m.broker.Connected() {
		return
	}

	for _, entry := range m.strategy.Universe() {
		if entry.Status != model.Watching {
			continue
		}

		quote, err := m.broker.GetCurrentPrice(ctx, entry.Code)
		if err != nil {
			m.logger.Warnf("can't fetch quote for %s: %v", entry.Code, err)
			continue
		}

		m.mu.Lock()
		m.prices[entry.Code] = quote.Price
		m.mu.Unlock()

		if !m.strategy.CheckBuySignal(entry.Code, quote.Price) {
			continue
		}

		// strength is a tick-level signal; the quote path has none, so use the
		// last realtime tick's value when one arrived
		m.mu.RLock()
		strength, seen := m.strengths[entry.Code]
		m.mu.RUnlock()
		if !seen {
			strength = m.minIntensity
		}

		if outcome := m.ProcessBuyEntry(ctx, entry.Code, quote.Price, quote.ChangeRate, strength, quote.Name); outcome == OutcomeRemove {
			m.strategy.RemoveStock(entry.Code)
			m.hub.Log("removed " + entry.Code + " from watchlist: change rate ceiling hit")
		}
	}
}

// ProcessBuyEntry runs the entry gauntlet for one symbol: safety ceiling,
// intensity floor, affordability, then order submission. The capital
// reservation happens before the order goes out and is rolled back when the
// broker rejects the submission.
func (m *Manager) ProcessBuyEntry(ctx context.Context, code string, price int64, rate, strength float64, name string) BuyOutcome {
	if rate > m.maxChangeRate {
		m.logger.Infof("%s change rate %.1f%% above ceiling, disqualified", code, rate)
		return OutcomeRemove
	}
	if strength < m.minIntensity {
		return OutcomeSkip
	}

	quantity := m.ledger.CalculateOrderQuantity(price)
	if quantity == 0 {
		// unlimited mode, buy a single share
		quantity = 1
	}
	amount := price * quantity

	ok, reason := m.ledger.Reserve(ctx, amount)
	if !ok {
		m.logger.Infof("buy for %s rejected: %s", code, reason)
		return OutcomeRejected
	}

	rc, err := m.broker.SendOrder(ctx, model.Buy, code, quantity, 0, m.account)
	if err != nil || rc != 0 {
		m.ledger.ReleaseReservation(ctx, amount)
		m.logger.Errorf("can't submit buy for %s: rc=%d err=%v", code, rc, err)
		return OutcomeRejected
	}

	m.mu.Lock()
	m.reserved[code] = reservation{amount: amount, quantity: quantity}
	m.mu.Unlock()

	m.strategy.SetStatus(code, model.Ordering)
	m.hub.StatusChange(code, string(model.Ordering), "")
	m.logger.Infof("buy submitted: %s x%d @ %d (%s)", code, quantity, price, name)

	return OutcomeOrdered
}

// WriteDailySummary closes out the trading day: opening capital was captured
// when the loop started, closing capital is the current operating capital.
// Re-running on the same date overwrites the row.
func (m *Manager) WriteDailySummary(ctx context.Context) {
	now := time.Now()
	closeCapital := m.ledger.Summary().OperatingCapital
	profit := closeCapital - m.openCapital

	var profitRate float64
	if m.openCapital > 0 {
		profitRate = float64(profit) / float64(m.openCapital) * 100
	}

	tradeCount, err := m.journal.TradeCountOn(ctx, now)
	if err != nil {
		m.logger.Errorf("can't count today's trades: %v", err)
	}

	summary := model.DailySummary{
		Date:         now.Format("2006-01-02"),
		OpenCapital:  m.openCapital,
		CloseCapital: closeCapital,
		Profit:       profit,
		ProfitRate:   profitRate,
		TradeCount:   tradeCount,
	}
	if err := m.journal.UpsertDailySummary(ctx, summary); err != nil {
		m.logger.Errorf("can't write daily summary: %v", err)
	}
}

// LedgerSummary implements the telemetry status surface.
func (m *Manager) LedgerSummary() model.LedgerSummary {
	return m.ledger.Summary()
}

func (m *Manager) Watchlist() []model.WatchEntry {
	return m.strategy.Universe()
}
