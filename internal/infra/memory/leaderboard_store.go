package memory

import (
	"context"
	"sort"
	"sync"

	"lingua-quiz-service/internal/domain"
)

// LeaderboardStore ranks users by total XP in memory. It implements both the
// read side (app.LeaderboardStore) and the write side (app.RankWriter).
type LeaderboardStore struct {
	mu      sync.RWMutex
	entries map[string]domain.RankedEntry
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{entries: make(map[string]domain.RankedEntry)}
}

func (s *LeaderboardStore) Record(_ context.Context, userID, displayName string, totalXP int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = domain.RankedEntry{
		UserID:      userID,
		DisplayName: displayName,
		TotalXP:     totalXP,
	}
	return nil
}

func (s *LeaderboardStore) List(_ context.Context, limit int) ([]domain.RankedEntry, error) {
	ranked := s.ranked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *LeaderboardStore) RankOf(_ context.Context, userID string) (int, error) {
	for _, entry := range s.ranked() {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, domain.ErrProfileNotFound
}

func (s *LeaderboardStore) ranked() []domain.RankedEntry {
	s.mu.RLock()
	entries := make([]domain.RankedEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalXP != entries[j].TotalXP {
			return entries[i].TotalXP > entries[j].TotalXP
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
