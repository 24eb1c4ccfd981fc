package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-quiz-service/internal/domain"
)

// ProfileRepository reads and writes the profiles table. Upserts are last
// write wins: the external schema defines no version column, so a
// concurrent read/upsert race is left unspecified.
type ProfileRepository struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool, clock: time.Now}
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, email, level, total_xp, streak, learning_language, native_language, last_active_at
		FROM profiles WHERE id=$1`, userID).
		Scan(&p.ID, &p.DisplayName, &p.Email, &p.Level, &p.TotalXP, &p.Streak,
			&p.LearningLanguage, &p.NativeLanguage, &p.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p domain.Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, display_name, email, level, total_xp, streak, learning_language, native_language, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			display_name=EXCLUDED.display_name,
			email=EXCLUDED.email,
			level=EXCLUDED.level,
			total_xp=EXCLUDED.total_xp,
			streak=EXCLUDED.streak,
			learning_language=EXCLUDED.learning_language,
			native_language=EXCLUDED.native_language,
			last_active_at=EXCLUDED.last_active_at`,
		p.ID, p.DisplayName, p.Email, p.Level, p.TotalXP, p.Streak,
		p.LearningLanguage, p.NativeLanguage, p.LastActiveAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) AddXP(ctx context.Context, userID string, xp int) (domain.Profile, error) {
	profile, err := r.Get(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		profile = domain.Profile{ID: userID, DisplayName: userID, Level: 1}
	} else if err != nil {
		return domain.Profile{}, err
	}

	now := r.clock()
	profile.TotalXP += xp
	profile.Level = domain.LevelForXP(profile.TotalXP)
	profile.Streak = domain.NextStreak(profile, now)
	profile.LastActiveAt = now

	if err := r.Upsert(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}
