package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"lingua-quiz-service/internal/domain"
)

// HistoryRepository persists quiz completions in Postgres.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func (r *HistoryRepository) Insert(ctx context.Context, record domain.HistoryRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO quiz_history (id, user_id, language, category, score, total, accuracy, time_spent_seconds, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.UserID, record.Language, record.Category,
		record.Score, record.Total, record.Accuracy, record.TimeSpent, record.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, language, category, score, total, accuracy, time_spent_seconds, completed_at
		FROM quiz_history WHERE user_id=$1
		ORDER BY completed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		var record domain.HistoryRecord
		if err := rows.Scan(&record.ID, &record.UserID, &record.Language, &record.Category,
			&record.Score, &record.Total, &record.Accuracy, &record.TimeSpent, &record.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *HistoryRepository) Aggregate(ctx context.Context, userID string) (domain.HistoryStats, error) {
	var stats domain.HistoryStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(score), 0)
		FROM quiz_history WHERE user_id=$1`, userID).
		Scan(&stats.Quizzes, &stats.Answered, &stats.Correct)
	if err != nil {
		return domain.HistoryStats{}, fmt.Errorf("aggregate history: %w", err)
	}
	if stats.Answered > 0 {
		stats.Accuracy = float64(stats.Correct) / float64(stats.Answered) * 100
	}
	return stats, nil
}
