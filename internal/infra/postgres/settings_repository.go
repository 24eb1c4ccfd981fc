package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-quiz-service/internal/domain"
)

// SettingsRepository persists user preferences in Postgres.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (domain.Settings, error) {
	var s domain.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, theme, font_size, sound_enabled, speech_rate
		FROM user_settings WHERE user_id=$1`, userID).
		Scan(&s.UserID, &s.Theme, &s.FontSize, &s.SoundEnabled, &s.SpeechRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settings{}, domain.ErrSettingsNotFound
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domain.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, theme, font_size, sound_enabled, speech_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			theme=EXCLUDED.theme,
			font_size=EXCLUDED.font_size,
			sound_enabled=EXCLUDED.sound_enabled,
			speech_rate=EXCLUDED.speech_rate`,
		s.UserID, s.Theme, s.FontSize, s.SoundEnabled, s.SpeechRate)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
