package broker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/ratelimit"

	"github.com/seoulquant/autotrader/internal/model"
)

// Gate wraps a Broker and serializes every outbound request through a shared
// rate limiter, so the trading loop and the discovery verifier together never
// exceed the brokerage request quota. One request is in flight at a time.
type Gate struct {
	mu      sync.Mutex
	broker  Broker
	limiter ratelimit.Limiter
	timeout time.Duration
}

func NewGate(broker Broker, spacing, timeout time.Duration) *Gate {
	if spacing <= 0 {
		spacing = 250 * time.Millisecond
	}
	perSecond := int(time.Second / spacing)
	if perSecond < 1 {
		perSecond = 1
	}

	return &Gate{
		broker:  broker,
		limiter: ratelimit.New(perSecond),
		timeout: timeout,
	}
}

func (g *Gate) acquire() func() {
	g.mu.Lock()
	g.limiter.Take()
	return g.mu.Unlock
}

func (g *Gate) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gate) Login(ctx context.Context) error {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	return g.mapErr(ctx, g.broker.Login(ctx))
}

func (g *Gate) Connected() bool {
	return g.broker.Connected()
}

func (g *Gate) GetCurrentPrice(ctx context.Context, code string) (model.Quote, error) {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	quote, err := g.broker.GetCurrentPrice(ctx, code)
	return quote, g.mapErr(ctx, err)
}

func (g *Gate) GetDailyBars(ctx context.Context, code string) ([]model.Bar, error) {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	bars, err := g.broker.GetDailyBars(ctx, code)
	return bars, g.mapErr(ctx, err)
}

func (g *Gate) GetHoldings(ctx context.Context, account string) ([]model.Holding, error) {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	holdings, err := g.broker.GetHoldings(ctx, account)
	return holdings, g.mapErr(ctx, err)
}

func (g *Gate) GetAccountBalance(ctx context.Context, account string) (model.AccountBalance, error) {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	balance, err := g.broker.GetAccountBalance(ctx, account)
	return balance, g.mapErr(ctx, err)
}

func (g *Gate) SendOrder(ctx context.Context, side model.Side, code string, quantity, price int64, account string) (int, error) {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rc, err := g.broker.SendOrder(ctx, side, code, quantity, price, account)
	return rc, g.mapErr(ctx, err)
}

func (g *Gate) Scan(ctx context.Context, kind ScanKind) ([]model.ScanCandidate, error) {
	defer g.acquire()()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	candidates, err := g.broker.Scan(ctx, kind)
	return candidates, g.mapErr(ctx, err)
}

func (g *Gate) Fills() <-chan model.FillEvent {
	return g.broker.Fills()
}

func (g *Gate) Ticks() <-chan model.Tick {
	return g.broker.Ticks()
}

func (g *Gate) mapErr(ctx context.Context, err error) error {
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return TimeoutError
	}
	return err
}
