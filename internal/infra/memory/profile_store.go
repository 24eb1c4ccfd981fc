package memory

import (
	"context"
	"sync"
	"time"

	"lingua-quiz-service/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileStore.
type ProfileStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		clock:    time.Now,
		profiles: make(map[string]domain.Profile),
	}
}

// NewProfileStoreWithClock is test-only for deterministic streak math.
func NewProfileStoreWithClock(clock func() time.Time) *ProfileStore {
	s := NewProfileStore()
	s.clock = clock
	return s
}

func (s *ProfileStore) Get(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *ProfileStore) Upsert(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Last write wins; no version check, matching the external store's
	// unspecified upsert/read race.
	s.profiles[profile.ID] = profile
	return nil
}

func (s *ProfileStore) AddXP(_ context.Context, userID string, xp int) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	profile, ok := s.profiles[userID]
	if !ok {
		profile = domain.Profile{ID: userID, DisplayName: userID, Level: 1}
	}
	profile.TotalXP += xp
	profile.Level = domain.LevelForXP(profile.TotalXP)
	profile.Streak = domain.NextStreak(profile, now)
	profile.LastActiveAt = now
	s.profiles[userID] = profile
	return profile, nil
}
