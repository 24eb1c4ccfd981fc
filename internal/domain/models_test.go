package domain

import (
	"testing"
	"time"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{-5, 1}, {0, 1}, {999, 1}, {1000, 2}, {2500, 3},
	}
	for _, tc := range cases {
		if got := LevelForXP(tc.xp); got != tc.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	if got := NextStreak(Profile{}, now); got != 1 {
		t.Errorf("first activity should start a streak, got %d", got)
	}

	sameDay := Profile{Streak: 4, LastActiveAt: now.Add(-2 * time.Hour)}
	if got := NextStreak(sameDay, now); got != 4 {
		t.Errorf("same-day activity should keep streak, got %d", got)
	}

	yesterday := Profile{Streak: 4, LastActiveAt: now.AddDate(0, 0, -1)}
	if got := NextStreak(yesterday, now); got != 5 {
		t.Errorf("consecutive-day activity should extend streak, got %d", got)
	}

	lapsed := Profile{Streak: 9, LastActiveAt: now.AddDate(0, 0, -3)}
	if got := NextStreak(lapsed, now); got != 1 {
		t.Errorf("gap should reset streak, got %d", got)
	}
}

func TestScoreAnswerMissingOptionIndex(t *testing.T) {
	q := Question{ID: "q1", Type: MultipleChoice, Options: []string{"a", "b"}, CorrectIndex: 0}
	if correct, _ := ScoreAnswer(q, AnswerSubmission{QuestionID: "q1", Text: "a"}); correct {
		t.Error("text submission against multiple_choice should not score")
	}
}

func TestScoreAnswerFillBlankIsExact(t *testing.T) {
	q := Question{ID: "q1", Type: FillBlank, CorrectText: "soy"}
	if correct, _ := ScoreAnswer(q, AnswerSubmission{Text: "soy"}); !correct {
		t.Error("exact fill_blank answer should score")
	}
	if correct, _ := ScoreAnswer(q, AnswerSubmission{Text: "Soy"}); correct {
		t.Error("fill_blank comparison is case-sensitive")
	}
}
