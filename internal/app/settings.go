package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"lingua-quiz-service/internal/domain"
)

// SettingsRepository is the durable side of user preferences.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// SettingsManager holds per-user preference state in memory. Toggles mutate
// the in-memory copy synchronously; nothing is persisted until an explicit
// Save. Users with no stored row get defaults.
type SettingsManager struct {
	repo SettingsRepository
	log  *zap.Logger

	mu     sync.RWMutex
	loaded map[string]domain.Settings
}

func NewSettingsManager(repo SettingsRepository, log *zap.Logger) *SettingsManager {
	return &SettingsManager{
		repo:   repo,
		log:    log,
		loaded: make(map[string]domain.Settings),
	}
}

// Load initializes a user's preferences from the repository. A missing row
// is not an error: defaults apply until the user saves.
func (m *SettingsManager) Load(ctx context.Context, userID string) (domain.Settings, error) {
	settings, err := m.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		settings = domain.DefaultSettings(userID)
	} else if err != nil {
		m.log.Warn("settings load failed", zap.String("user", userID), zap.Error(err))
		return domain.DefaultSettings(userID), err
	}

	m.mu.Lock()
	m.loaded[userID] = settings
	m.mu.Unlock()
	return settings, nil
}

// Current returns the in-memory preferences, falling back to defaults for
// users that were never loaded.
func (m *SettingsManager) Current(userID string) domain.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if settings, ok := m.loaded[userID]; ok {
		return settings
	}
	return domain.DefaultSettings(userID)
}

// Update applies a synchronous in-memory mutation and returns the result.
func (m *SettingsManager) Update(userID string, mutate func(*domain.Settings)) domain.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.loaded[userID]
	if !ok {
		settings = domain.DefaultSettings(userID)
	}
	mutate(&settings)
	settings.UserID = userID
	m.loaded[userID] = settings
	return settings
}

// Save flushes the in-memory preferences for one user to the repository.
func (m *SettingsManager) Save(ctx context.Context, userID string) error {
	settings := m.Current(userID)
	if err := m.repo.Save(ctx, settings); err != nil {
		m.log.Warn("settings save failed", zap.String("user", userID), zap.Error(err))
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
