package domain

import (
	"strings"
	"time"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	FillBlank      QuestionType = "fill_blank"
	ShortAnswer    QuestionType = "short_answer"
)

// True/false questions expose two fixed answer slots.
const (
	TrueSlot  = 0
	FalseSlot = 1
)

// Question is an immutable authored question record. Which correct-answer
// field is meaningful depends on Type: CorrectIndex for multiple_choice,
// CorrectBool for true_false, CorrectText for fill_blank and short_answer.
type Question struct {
	ID           string       `json:"id"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex int          `json:"correctIndex,omitempty"`
	CorrectBool  bool         `json:"correctBool,omitempty"`
	CorrectText  string       `json:"correctText,omitempty"`
	Difficulty   string       `json:"difficulty,omitempty"`
	Category     string       `json:"category,omitempty"`
	Explanation  string       `json:"explanation,omitempty"`
}

// Bank is the full authored question set for one learning language.
// Language is a lookup key, not a structural fork: all languages share
// this one schema.
type Bank struct {
	Language  string     `json:"language"`
	Questions []Question `json:"questions"`
}

// AnswerSubmission carries a user's answer for the current question.
// OptionIndex is set for multiple_choice and true_false, Text for
// fill_blank and short_answer.
type AnswerSubmission struct {
	QuestionID  string `json:"questionId"`
	OptionIndex *int   `json:"optionIndex,omitempty"`
	Text        string `json:"text,omitempty"`
}

// AnswerRecord is one scored answer within a session.
type AnswerRecord struct {
	QuestionID string `json:"questionId"`
	Given      string `json:"given"`
	Correct    bool   `json:"correct"`
}

// QuizResult is the final tally of a completed session.
type QuizResult struct {
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Accuracy    float64   `json:"accuracy"`
	TimeSpent   int       `json:"timeSpentSeconds"`
	CompletedAt time.Time `json:"completedAt"`
}

// HistoryRecord is a durable quiz completion entry.
type HistoryRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Language    string    `json:"language"`
	Category    string    `json:"category,omitempty"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Accuracy    float64   `json:"accuracy"`
	TimeSpent   int       `json:"timeSpentSeconds"`
	CompletedAt time.Time `json:"completedAt"`
}

// HistoryStats aggregates a user's quiz history.
type HistoryStats struct {
	Quizzes  int     `json:"quizzes"`
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Profile mirrors the user profile row owned by the relational store.
type Profile struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"displayName"`
	Email            string    `json:"email,omitempty"`
	Level            int       `json:"level"`
	TotalXP          int       `json:"totalXp"`
	Streak           int       `json:"streak"`
	LearningLanguage string    `json:"learningLanguage,omitempty"`
	NativeLanguage   string    `json:"nativeLanguage,omitempty"`
	LastActiveAt     time.Time `json:"lastActiveAt,omitempty"`
}

// LevelForXP derives a profile level from accumulated XP.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		return 1
	}
	return 1 + totalXP/1000
}

// NextStreak computes the daily streak value after activity at now.
// Consecutive-day activity extends the streak, same-day activity keeps it,
// and a gap resets it to one.
func NextStreak(p Profile, now time.Time) int {
	if p.LastActiveAt.IsZero() {
		return 1
	}
	days := dayNumber(now) - dayNumber(p.LastActiveAt)
	switch {
	case days == 0:
		if p.Streak < 1 {
			return 1
		}
		return p.Streak
	case days == 1:
		return p.Streak + 1
	default:
		return 1
	}
}

func dayNumber(t time.Time) int {
	t = t.UTC()
	return int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// RankedEntry is one row of the leaderboard as computed by the store.
type RankedEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalXP     int    `json:"totalXp"`
}

// Leaderboard is the last-fetched ranked snapshot.
type Leaderboard struct {
	Entries   []RankedEntry `json:"entries"`
	OwnRank   int           `json:"ownRank,omitempty"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// Settings holds per-user accessibility and UI preferences.
type Settings struct {
	UserID       string  `json:"userId"`
	Theme        string  `json:"theme"`
	FontSize     string  `json:"fontSize"`
	SoundEnabled bool    `json:"soundEnabled"`
	SpeechRate   float64 `json:"speechRate"`
}

// DefaultSettings returns the preference values used before a user saves any.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:       userID,
		Theme:        "light",
		FontSize:     "medium",
		SoundEnabled: true,
		SpeechRate:   1.0,
	}
}

// ScoreAnswer applies the type-specific comparison rules and returns whether
// the submission is correct plus a normalized rendering of the given answer.
func ScoreAnswer(q Question, sub AnswerSubmission) (bool, string) {
	switch q.Type {
	case MultipleChoice:
		if sub.OptionIndex == nil {
			return false, ""
		}
		idx := *sub.OptionIndex
		given := ""
		if idx >= 0 && idx < len(q.Options) {
			given = q.Options[idx]
		}
		return idx == q.CorrectIndex, given
	case TrueFalse:
		if sub.OptionIndex == nil {
			return false, ""
		}
		given := *sub.OptionIndex == TrueSlot
		if given {
			return q.CorrectBool, "true"
		}
		return !q.CorrectBool, "false"
	case FillBlank:
		return sub.Text == q.CorrectText, sub.Text
	case ShortAnswer:
		given := strings.TrimSpace(sub.Text)
		want := strings.TrimSpace(q.CorrectText)
		return strings.EqualFold(given, want), sub.Text
	default:
		return false, sub.Text
	}
}
