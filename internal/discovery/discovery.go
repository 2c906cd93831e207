package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/seoulquant/autotrader/internal/broker"
	"github.com/seoulquant/autotrader/internal/config"
	"github.com/seoulquant/autotrader/internal/events"
	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
	"github.com/seoulquant/autotrader/internal/strategy"
)

// PositionChecker reports whether a symbol is currently held. Discovered
// symbols that became real positions leave the discovery lifecycle.
type PositionChecker interface {
	HoldingFor(code string) (model.Holding, bool)
}

// Discovery runs the candidate pipeline: broker-side surge scans feed a FIFO
// queue, a rate-limited verifier promotes candidates that pass the profile
// filter into the watch universe, and a TTL sweep evicts discovered symbols
// the scanner stopped reconfirming.
type Discovery struct {
	cfg       config.DiscoveryConfig
	broker    broker.Broker
	strategy  *strategy.Breakout
	positions PositionChecker
	hub       *events.Hub
	logger    logger.Logger

	mu        sync.Mutex
	queue     []model.ScanCandidate
	pending   map[string]struct{}
	misses    map[string]int
	confirmed map[string]struct{}
}

func NewDiscovery(
	cfg config.DiscoveryConfig,
	brk broker.Broker,
	strat *strategy.Breakout,
	positions PositionChecker,
	hub *events.Hub,
	log logger.Logger,
) *Discovery {
	return &Discovery{
		cfg:       cfg,
		broker:    brk,
		strategy:  strat,
		positions: positions,
		hub:       hub,
		logger:    log,
		pending:   make(map[string]struct{}),
		misses:    make(map[string]int),
		confirmed: make(map[string]struct{}),
	}
}

func (d *Discovery) Run(ctx context.Context) error {
	scanTicker := time.NewTicker(d.cfg.ScanInterval)
	defer scanTicker.Stop()
	verifyTicker := time.NewTicker(d.cfg.VerifyInterval)
	defer verifyTicker.Stop()
	sweepTicker := time.NewTicker(d.cfg.SweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scanTicker.C:
			d.scan(ctx)
		case <-verifyTicker.C:
			d.verifyNext(ctx)
		case <-sweepTicker.C:
			d.sweep()
		}
	}
}

func (d *Discovery) scan(ctx context.Context) {
	if !d.broker.Connected() {
		return
	}

	for _, kind := range []broker.ScanKind{broker.ScanVolumeSurge, broker.ScanPriceSurge} {
		candidates, err := d.broker.Scan(ctx, kind)
		if err != nil {
			d.logger.Warnf("can't run %s scan: %v", kind, err)
			continue
		}
		d.Offer(candidates...)
	}
}

// Offer feeds candidates into the queue, deduplicating against both the
// pending queue and the live universe. A hit for a symbol already in the
// universe counts as a reconfirmation for the TTL sweep.
func (d *Discovery) Offer(candidates ...model.ScanCandidate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range candidates {
		if d.strategy.Contains(c.Code) {
			d.confirmed[c.Code] = struct{}{}
			continue
		}
		if _, queued := d.pending[c.Code]; queued {
			continue
		}

		d.pending[c.Code] = struct{}{}
		d.queue = append(d.queue, c)
	}
}

// verifyNext pops one candidate and runs the profile filter against its
// history. One candidate per interval keeps the verifier inside the broker
// request quota.
func (d *Discovery) verifyNext(ctx context.Context) {
	// leave the queue intact while disconnected, the candidate gets its turn
	// on a later interval
	if !d.broker.Connected() {
		return
	}

	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	candidate := d.queue[0]
	d.queue = d.queue[1:]
	delete(d.pending, candidate.Code)
	d.mu.Unlock()

	bars, err := d.broker.GetDailyBars(ctx, candidate.Code)
	if err != nil {
		d.logger.Warnf("can't fetch bars for candidate %s: %v", candidate.Code, err)
		return
	}

	if !passesProfile(d.cfg.Profile, bars) {
		return
	}

	d.strategy.AddDiscovered(ctx, candidate.Code, candidate.Name, string(d.cfg.Profile))

	d.mu.Lock()
	d.misses[candidate.Code] = 0
	d.mu.Unlock()

	d.logger.Infof("discovered %s (%s) via %s", candidate.Code, candidate.Name, d.cfg.Profile)
	d.hub.Log("watching discovered symbol " + candidate.Code)
}

// sweep ages out discovered symbols the scanner stopped reconfirming and
// hands held symbols over to the position-tracking path.
func (d *Discovery) sweep() {
	d.mu.Lock()
	confirmed := d.confirmed
	d.confirmed = make(map[string]struct{})
	d.mu.Unlock()

	for _, entry := range d.strategy.Universe() {
		if entry.Source != model.SourceDiscovered || entry.Status == model.Filled {
			continue
		}

		if _, held := d.positions.HoldingFor(entry.Code); held {
			d.forget(entry.Code)
			continue
		}

		if _, ok := confirmed[entry.Code]; ok {
			d.mu.Lock()
			d.misses[entry.Code] = 0
			d.mu.Unlock()
			continue
		}

		d.mu.Lock()
		d.misses[entry.Code]++
		evict := d.misses[entry.Code] >= d.cfg.MissLimit
		d.mu.Unlock()

		if evict {
			d.strategy.RemoveStock(entry.Code)
			d.forget(entry.Code)
			d.logger.Infof("evicted %s: not reconfirmed for %d sweeps", entry.Code, d.cfg.MissLimit)
			d.hub.Log("evicted stale discovery " + entry.Code)
		}
	}
}

func (d *Discovery) forget(code string) {
	d.mu.Lock()
	delete(d.misses, code)
	d.mu.Unlock()
}

// QueueDepth reports how many candidates await verification.
func (d *Discovery) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queue)
}
