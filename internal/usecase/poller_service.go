package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/vitos/funding_radar/internal/domain"
	"go.uber.org/zap"
)

// PollState is the poller's externally visible state: the last good
// snapshot, when it was produced, the last fetch error (empty after a
// success) and whether any request is still in flight.
type PollState struct {
	Snapshot    *domain.Snapshot
	Version     uint64
	LastUpdated time.Time
	ErrMessage  string
	Loading     bool
}

// PollerService fetches funding snapshots on a fixed interval, starting
// immediately. Ticks fire independently of in-flight requests, so fetches
// may overlap; each attempt carries a monotonic sequence number and a
// completion older than the one already applied is discarded, which keeps
// a slow early response from clobbering a newer snapshot.
//
// A failed fetch keeps the previous snapshot and records the message;
// stale-but-present data beats a blank screen. The loop never stops on
// error.
type PollerService struct {
	source   domain.SnapshotSource
	interval time.Duration
	logger   *zap.Logger
	timeNow  func() time.Time

	mu          sync.Mutex
	snapshot    *domain.Snapshot
	version     uint64
	lastUpdated time.Time
	errMessage  string
	inFlight    int
	nextSeq     uint64
	appliedSeq  uint64
	listeners   []func(PollState)
	wg          sync.WaitGroup
}

func NewPollerService(source domain.SnapshotSource, interval time.Duration, logger *zap.Logger) *PollerService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PollerService{
		source:   source,
		interval: interval,
		logger:   logger,
		timeNow:  time.Now,
	}
}

// OnUpdate registers a callback invoked after every applied fetch result,
// success or failure. Register before Run.
func (p *PollerService) OnUpdate(fn func(PollState)) {
	p.listeners = append(p.listeners, fn)
}

func (p *PollerService) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *PollerService) stateLocked() PollState {
	return PollState{
		Snapshot:    p.snapshot,
		Version:     p.version,
		LastUpdated: p.lastUpdated,
		ErrMessage:  p.errMessage,
		Loading:     p.inFlight > 0,
	}
}

// Run fetches immediately, then on every tick, until the context is
// cancelled. It waits for in-flight fetches before returning so no work
// leaks past the caller's lifetime.
func (p *PollerService) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Snapshot poll loop started", zap.Duration("interval", p.interval))

	p.launch(ctx)
	for {
		select {
		case <-ticker.C:
			p.launch(ctx)
		case <-ctx.Done():
			p.wg.Wait()
			p.logger.Info("Snapshot poll loop stopped")
			return
		}
	}
}

// RefreshNow performs one fetch synchronously, outside the periodic
// schedule. It follows the same sequence rule as scheduled fetches.
func (p *PollerService) RefreshNow(ctx context.Context) {
	p.mu.Lock()
	p.nextSeq++
	seq := p.nextSeq
	p.inFlight++
	p.mu.Unlock()

	p.fetchOnce(ctx, seq)
}

func (p *PollerService) launch(ctx context.Context) {
	p.mu.Lock()
	p.nextSeq++
	seq := p.nextSeq
	p.inFlight++
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.fetchOnce(ctx, seq)
	}()
}

// fetchOnce performs a single attempt and applies the result under the
// sequence rule.
func (p *PollerService) fetchOnce(ctx context.Context, seq uint64) {
	snap, err := p.source.FetchSnapshot(ctx)

	p.mu.Lock()
	p.inFlight--

	if seq < p.appliedSeq {
		p.mu.Unlock()
		p.logger.Debug("Discarding stale fetch result",
			zap.Uint64("seq", seq),
			zap.Uint64("applied_seq", p.appliedSeq))
		return
	}
	p.appliedSeq = seq

	if err != nil {
		p.errMessage = err.Error()
		state := p.stateLocked()
		p.mu.Unlock()

		p.logger.Error("Snapshot fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		p.notify(state)
		return
	}

	p.snapshot = snap
	p.version++
	p.errMessage = ""
	if snap.LastUpdatedTimestamp != nil {
		sec := int64(*snap.LastUpdatedTimestamp)
		nsec := int64((*snap.LastUpdatedTimestamp - float64(sec)) * float64(time.Second))
		p.lastUpdated = time.Unix(sec, nsec)
	} else {
		p.lastUpdated = p.timeNow()
	}
	state := p.stateLocked()
	p.mu.Unlock()

	p.logger.Debug("Snapshot applied",
		zap.Uint64("seq", seq),
		zap.Int("markets", len(snap.AllMarkets)),
		zap.Int("top_opportunities", len(snap.TopFundingOpportunities)))
	p.notify(state)
}

func (p *PollerService) notify(state PollState) {
	for _, fn := range p.listeners {
		fn(state)
	}
}
