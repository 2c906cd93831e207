package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/seoulquant/autotrader/internal/broker"
	"github.com/seoulquant/autotrader/internal/model"
)

// Simulator is a paper broker. Every order is accepted and filled immediately
// at the current quote, holdings are tracked in memory, and test code injects
// quotes, bars and ticks directly. Sandbox mode runs the full trading loop
// against it.
type Simulator struct {
	mu        sync.Mutex
	connected bool
	quotes    map[string]model.Quote
	bars      map[string][]model.Bar
	holdings  map[string]*model.Holding
	scans     map[broker.ScanKind][]model.ScanCandidate
	cash      int64

	fills chan model.FillEvent
	ticks chan model.Tick
}

func NewSimulator() *Simulator {
	return &Simulator{
		connected: true,
		quotes:    make(map[string]model.Quote),
		bars:      make(map[string][]model.Bar),
		holdings:  make(map[string]*model.Holding),
		scans:     make(map[broker.ScanKind][]model.ScanCandidate),
		fills:     make(chan model.FillEvent, 64),
		ticks:     make(chan model.Tick, 64),
	}
}

func (s *Simulator) Login(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Simulator) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Simulator) SetQuote(quote model.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[quote.Code] = quote
}

func (s *Simulator) SetBars(code string, bars []model.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[code] = bars
}

func (s *Simulator) SetScanResult(kind broker.ScanKind, candidates []model.ScanCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[kind] = candidates
}

func (s *Simulator) SetCash(cash int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = cash
}

// PushTick injects a realtime tick as if the brokerage feed delivered it.
func (s *Simulator) PushTick(tick model.Tick) {
	s.ticks <- tick
}

func (s *Simulator) GetCurrentPrice(_ context.Context, code string) (model.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return model.Quote{}, broker.NotConnectedError
	}

	quote, ok := s.quotes[code]
	if !ok {
		return model.Quote{}, fmt.Errorf("no quote for %s", code)
	}

	return quote, nil
}

func (s *Simulator) GetDailyBars(_ context.Context, code string) ([]model.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, broker.NotConnectedError
	}

	return s.bars[code], nil
}

func (s *Simulator) GetHoldings(_ context.Context, _ string) ([]model.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, broker.NotConnectedError
	}

	holdings := make([]model.Holding, 0, len(s.holdings))
	for _, h := range s.holdings {
		holdings = append(holdings, *h)
	}

	return holdings, nil
}

func (s *Simulator) GetAccountBalance(_ context.Context, _ string) (model.AccountBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return model.AccountBalance{}, broker.NotConnectedError
	}

	return model.AccountBalance{CashDeposit: s.cash, SettledAvailableCash: s.cash}, nil
}

// SendOrder fills the whole order at the current quote right away. The fill
// event goes out on the fills channel, the same path a live feed would use.
func (s *Simulator) SendOrder(_ context.Context, side model.Side, code string, quantity, price int64, _ string) (int, error) {
	s.mu.Lock()

	if !s.connected {
		s.mu.Unlock()
		return -1, broker.NotConnectedError
	}

	fillPrice := price
	if quote, ok := s.quotes[code]; ok && fillPrice == 0 {
		fillPrice = quote.Price
	}
	if fillPrice == 0 {
		s.mu.Unlock()
		return -1, fmt.Errorf("no quote for %s", code)
	}

	name := s.quotes[code].Name

	switch side {
	case model.Buy:
		s.applyBuy(code, name, quantity, fillPrice)
	case model.Sell:
		s.applySell(code, quantity, fillPrice)
	}
	s.mu.Unlock()

	s.fills <- model.FillEvent{
		Side:     side,
		Code:     code,
		Name:     name,
		Quantity: quantity,
		Price:    fillPrice,
		OrderRef: "sim-" + uuid.NewString(),
		Status:   "filled",
	}

	return 0, nil
}

func (s *Simulator) applyBuy(code, name string, quantity, price int64) {
	h, ok := s.holdings[code]
	if !ok {
		s.holdings[code] = &model.Holding{
			Code: code, Name: name, Quantity: quantity, AvgCost: price, CurrentPrice: price,
		}
		return
	}

	total := h.AvgCost*h.Quantity + price*quantity
	h.Quantity += quantity
	h.AvgCost = total / h.Quantity
	h.CurrentPrice = price
}

func (s *Simulator) applySell(code string, quantity, price int64) {
	h, ok := s.holdings[code]
	if !ok {
		return
	}

	h.Quantity -= quantity
	h.CurrentPrice = price
	if h.Quantity <= 0 {
		delete(s.holdings, code)
	}
}

func (s *Simulator) Scan(_ context.Context, kind broker.ScanKind) ([]model.ScanCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, broker.NotConnectedError
	}

	return s.scans[kind], nil
}

func (s *Simulator) Fills() <-chan model.FillEvent {
	return s.fills
}

func (s *Simulator) Ticks() <-chan model.Tick {
	return s.ticks
}
