package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"lingua-quiz-service/internal/app"
	"lingua-quiz-service/internal/domain"
	"lingua-quiz-service/internal/infra/memory"
)

func finishedSession(t *testing.T) (*app.Session, domain.QuizResult) {
	t.Helper()
	clock := newFakeClock()
	session := newTestSession(t, threeQuestions(), nil, clock)
	for _, sub := range []domain.AnswerSubmission{
		{QuestionID: "q1", OptionIndex: intPtr(1)},
		{QuestionID: "q2", OptionIndex: intPtr(domain.TrueSlot)},
		{QuestionID: "q3", Text: "cat"},
	} {
		if _, err := session.Submit(sub); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if _, _, err := session.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	result, ok := session.Result()
	if !ok {
		t.Fatal("session not finished")
	}
	return session, result
}

func TestReportPersistsHistoryAndXP(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryStore()
	profiles := memory.NewProfileStore()
	ranks := memory.NewLeaderboardStore()
	reporter := app.NewReporter(history, profiles, ranks, 10, zap.NewNop())

	session, result := finishedSession(t)
	reporter.Report(ctx, session, result)

	records, err := history.List(ctx, "u1", 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d err=%v", len(records), err)
	}
	record := records[0]
	if record.Score != 3 || record.Total != 3 || record.Language != "spanish" {
		t.Fatalf("unexpected record %+v", record)
	}

	profile, err := profiles.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalXP != 30 {
		t.Fatalf("expected 30 xp, got %d", profile.TotalXP)
	}
	if profile.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", profile.Streak)
	}

	entries, err := ranks.List(ctx, 10)
	if err != nil || len(entries) != 1 || entries[0].TotalXP != 30 {
		t.Fatalf("expected ranked entry with 30 xp, got %+v err=%v", entries, err)
	}
}

type failingHistory struct{}

func (failingHistory) Insert(context.Context, domain.HistoryRecord) error {
	return errors.New("store down")
}
func (failingHistory) List(context.Context, string, int) ([]domain.HistoryRecord, error) {
	return nil, errors.New("store down")
}
func (failingHistory) Aggregate(context.Context, string) (domain.HistoryStats, error) {
	return domain.HistoryStats{}, errors.New("store down")
}

func TestReportSwallowsStorageFailures(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	reporter := app.NewReporter(failingHistory{}, profiles, memory.NewLeaderboardStore(), 10, zap.NewNop())

	session, result := finishedSession(t)
	// Must not panic or propagate; XP is still awarded.
	reporter.Report(ctx, session, result)

	profile, err := profiles.Get(ctx, "u1")
	if err != nil || profile.TotalXP != 30 {
		t.Fatalf("expected xp despite history failure, got %+v err=%v", profile, err)
	}
}

func TestReportSkipsXPForZeroScore(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	history := memory.NewHistoryStore()
	reporter := app.NewReporter(history, profiles, memory.NewLeaderboardStore(), 10, zap.NewNop())

	clock := newFakeClock()
	session := newTestSession(t, []domain.Question{{ID: "q1", Type: domain.ShortAnswer, CorrectText: "cat"}}, nil, clock)
	if _, err := session.Submit(domain.AnswerSubmission{QuestionID: "q1", Text: "dog"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	result, _ := session.Result()
	reporter.Report(ctx, session, result)

	if _, err := profiles.Get(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("no profile should be created for zero xp, got %v", err)
	}
	records, _ := history.List(ctx, "u1", 10)
	if len(records) != 1 {
		t.Fatalf("history should still be written, got %d", len(records))
	}
}

func TestReportTimeSpentPropagates(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryStore()
	reporter := app.NewReporter(history, memory.NewProfileStore(), nil, 10, zap.NewNop())

	clock := newFakeClock()
	session := newTestSession(t, []domain.Question{{ID: "q1", Type: domain.FillBlank, CorrectText: "x"}}, nil, clock)
	if _, err := session.Submit(domain.AnswerSubmission{QuestionID: "q1", Text: "x"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	clock.Advance(42 * time.Second)
	if _, _, err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	result, _ := session.Result()
	reporter.Report(ctx, session, result)

	records, _ := history.List(ctx, "u1", 1)
	if len(records) != 1 || records[0].TimeSpent != 42 {
		t.Fatalf("expected 42s in history, got %+v", records)
	}
}
