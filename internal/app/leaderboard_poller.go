package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"lingua-quiz-service/internal/domain"
)

// LeaderboardStore returns ranked users. Ranking is computed entirely by the
// store; the poller performs no local aggregation.
type LeaderboardStore interface {
	List(ctx context.Context, limit int) ([]domain.RankedEntry, error)
	RankOf(ctx context.Context, userID string) (int, error)
}

// LeaderboardPoller refreshes a ranked snapshot on an interval and on demand.
// It keeps only the last-fetched list. Each fetch carries a generation
// number so a response that lands after a newer fetch (or after Stop) is
// dropped instead of clobbering fresher state.
type LeaderboardPoller struct {
	store    LeaderboardStore
	limit    int
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	generation  uint64
	applied     uint64
	stopped     bool
	snapshot    domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardPoller(store LeaderboardStore, limit int, interval time.Duration, log *zap.Logger) *LeaderboardPoller {
	if limit <= 0 {
		limit = 10
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &LeaderboardPoller{
		store:       store,
		limit:       limit,
		interval:    interval,
		log:         log,
		now:         time.Now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Run refreshes until the context is cancelled. Teardown cancels the ticker;
// an in-flight fetch is not interrupted but its result will be discarded.
func (p *LeaderboardPoller) Run(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil {
		p.log.Warn("initial leaderboard fetch failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.stop()
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				p.log.Warn("leaderboard refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh fetches a ranked page and applies it unless a newer fetch already
// did. Fetch errors leave the previous snapshot in place.
func (p *LeaderboardPoller) Refresh(ctx context.Context) (domain.Leaderboard, error) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	entries, err := p.store.List(ctx, p.limit)
	if err != nil {
		return p.Snapshot(), err
	}

	lb := domain.Leaderboard{Entries: entries, FetchedAt: p.now()}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || gen < p.applied {
		// A newer fetch (or teardown) won the race; drop this response.
		return p.snapshot, nil
	}
	p.applied = gen
	p.snapshot = lb
	p.broadcastLocked(lb)
	return lb, nil
}

// Snapshot returns the last applied leaderboard, possibly empty.
func (p *LeaderboardPoller) Snapshot() domain.Leaderboard {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// OwnRank passes the requesting user's rank query through to the store.
func (p *LeaderboardPoller) OwnRank(ctx context.Context, userID string) (int, error) {
	return p.store.RankOf(ctx, userID)
}

// Subscribe returns a channel receiving snapshot updates. The caller must
// invoke the returned cancel function to avoid leaks.
func (p *LeaderboardPoller) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	initial := p.snapshot
	p.mu.Unlock()

	ch <- initial

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *LeaderboardPoller) broadcastLocked(lb domain.Leaderboard) {
	for ch := range p.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale update so a slow reader never blocks the poll loop.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (p *LeaderboardPoller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	for ch := range p.subscribers {
		delete(p.subscribers, ch)
		close(ch)
	}
}
