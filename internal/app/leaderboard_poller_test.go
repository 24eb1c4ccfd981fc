package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"lingua-quiz-service/internal/app"
	"lingua-quiz-service/internal/domain"
)

type fakeLeaderboardStore struct {
	mu      sync.Mutex
	entries []domain.RankedEntry
	err     error
	calls   int
}

func (s *fakeLeaderboardStore) List(_ context.Context, limit int) ([]domain.RankedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	entries := s.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *fakeLeaderboardStore) RankOf(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, domain.ErrProfileNotFound
}

func (s *fakeLeaderboardStore) set(entries []domain.RankedEntry, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.err = err
}

func rankedPair() []domain.RankedEntry {
	return []domain.RankedEntry{
		{Rank: 1, UserID: "u1", DisplayName: "Alice", TotalXP: 300},
		{Rank: 2, UserID: "u2", DisplayName: "Bob", TotalXP: 120},
	}
}

func TestRefreshAppliesSnapshot(t *testing.T) {
	store := &fakeLeaderboardStore{}
	store.set(rankedPair(), nil)
	poller := app.NewLeaderboardPoller(store, 10, time.Minute, zap.NewNop())

	lb, err := poller.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "u1" {
		t.Fatalf("unexpected snapshot %+v", lb.Entries)
	}
	if got := poller.Snapshot(); len(got.Entries) != 2 {
		t.Fatalf("snapshot not stored: %+v", got)
	}
}

func TestShortListIsNotPadded(t *testing.T) {
	store := &fakeLeaderboardStore{}
	store.set(rankedPair(), nil)
	poller := app.NewLeaderboardPoller(store, 50, time.Minute, zap.NewNop())

	lb, err := poller.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected exactly 2 rows, got %d", len(lb.Entries))
	}
}

func TestFetchErrorKeepsLastSnapshot(t *testing.T) {
	store := &fakeLeaderboardStore{}
	store.set(rankedPair(), nil)
	poller := app.NewLeaderboardPoller(store, 10, time.Minute, zap.NewNop())

	if _, err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	store.set(nil, errors.New("store down"))
	if _, err := poller.Refresh(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := poller.Snapshot(); len(got.Entries) != 2 {
		t.Fatalf("error clobbered snapshot: %+v", got)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	store := &fakeLeaderboardStore{}
	store.set(rankedPair(), nil)
	poller := app.NewLeaderboardPoller(store, 10, time.Minute, zap.NewNop())

	ch, cancel := poller.Subscribe()
	defer cancel()
	<-ch // initial (empty) snapshot

	if _, err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	update := <-ch
	if len(update.Entries) != 2 {
		t.Fatalf("expected update with 2 entries, got %+v", update.Entries)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeLeaderboardStore{}
	store.set(rankedPair(), nil)
	poller := app.NewLeaderboardPoller(store, 10, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
	if len(poller.Snapshot().Entries) != 2 {
		t.Fatalf("expected polled snapshot, got %+v", poller.Snapshot())
	}
}

func TestOwnRankPassesThrough(t *testing.T) {
	store := &fakeLeaderboardStore{}
	store.set(rankedPair(), nil)
	poller := app.NewLeaderboardPoller(store, 10, time.Minute, zap.NewNop())

	rank, err := poller.OwnRank(context.Background(), "u2")
	if err != nil || rank != 2 {
		t.Fatalf("expected rank 2, got %d err=%v", rank, err)
	}
	if _, err := poller.OwnRank(context.Background(), "ghost"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
