package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lingua-quiz-service/internal/domain"
)

// HistoryStore persists quiz completion records.
type HistoryStore interface {
	Insert(ctx context.Context, record domain.HistoryRecord) error
	List(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error)
	Aggregate(ctx context.Context, userID string) (domain.HistoryStats, error)
}

// ProfileStore reads and writes user profiles owned by the relational store.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Upsert(ctx context.Context, profile domain.Profile) error
	// AddXP credits experience points and returns the updated profile,
	// creating a default row for first-time users.
	AddXP(ctx context.Context, userID string, xp int) (domain.Profile, error)
}

// RankWriter feeds completed-quiz XP into the ranking store.
type RankWriter interface {
	Record(ctx context.Context, userID, displayName string, totalXP int) error
}

// Reporter hands a finished session's tally to the durable stores. Every
// storage failure is logged and swallowed: the user-visible completion flow
// is never blocked and nothing is retried.
type Reporter struct {
	history      HistoryStore
	profiles     ProfileStore
	ranks        RankWriter
	xpPerCorrect int
	log          *zap.Logger
	timeout      time.Duration
}

func NewReporter(history HistoryStore, profiles ProfileStore, ranks RankWriter, xpPerCorrect int, log *zap.Logger) *Reporter {
	if xpPerCorrect <= 0 {
		xpPerCorrect = 10
	}
	return &Reporter{
		history:      history,
		profiles:     profiles,
		ranks:        ranks,
		xpPerCorrect: xpPerCorrect,
		log:          log,
		timeout:      10 * time.Second,
	}
}

// Report persists the history record and credits XP for correct answers.
func (r *Reporter) Report(ctx context.Context, session *Session, result domain.QuizResult) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	record := domain.HistoryRecord{
		ID:          uuid.NewString(),
		UserID:      session.UserID(),
		Language:    session.Language(),
		Category:    session.Category(),
		Score:       result.Score,
		Total:       result.Total,
		Accuracy:    result.Accuracy,
		TimeSpent:   result.TimeSpent,
		CompletedAt: result.CompletedAt,
	}

	if err := r.history.Insert(ctx, record); err != nil {
		r.log.Warn("quiz history insert failed",
			zap.String("user", record.UserID),
			zap.String("record", record.ID),
			zap.Error(err))
	}

	xp := result.Score * r.xpPerCorrect
	if xp == 0 {
		return
	}
	profile, err := r.profiles.AddXP(ctx, session.UserID(), xp)
	if err != nil {
		r.log.Warn("xp award failed", zap.String("user", session.UserID()), zap.Error(err))
		return
	}
	if r.ranks == nil {
		return
	}
	if err := r.ranks.Record(ctx, profile.ID, profile.DisplayName, profile.TotalXP); err != nil {
		r.log.Warn("leaderboard update failed", zap.String("user", profile.ID), zap.Error(err))
	}
}
