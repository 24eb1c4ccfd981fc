package memory

import (
	"context"
	"sync"

	"lingua-quiz-service/internal/domain"
)

// SettingsStore is an in-memory implementation of app.SettingsRepository.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]domain.Settings
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]domain.Settings)}
}

func (s *SettingsStore) Get(_ context.Context, userID string) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[userID]
	if !ok {
		return domain.Settings{}, domain.ErrSettingsNotFound
	}
	return settings, nil
}

func (s *SettingsStore) Save(_ context.Context, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.UserID] = settings
	return nil
}
