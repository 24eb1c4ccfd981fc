package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lingua-quiz-service/internal/domain"
)

// SessionRepository abstracts how active quiz sessions are tracked
// (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, language string) (domain.Bank, error)
}

// ResultReporter receives the final tally of a completed session.
type ResultReporter interface {
	Report(ctx context.Context, session *Session, result domain.QuizResult)
}

// QuizService contains the quiz use cases: starting a session, scoring
// answers, advancing through the question sequence, and teardown.
type QuizService struct {
	sessions SessionRepository
	banks    BankRepository
	reporter ResultReporter
	log      *zap.Logger
	now      func() time.Time
	shuffle  func(n int, swap func(i, j int))
}

func NewQuizService(sessions SessionRepository, banks BankRepository, reporter ResultReporter, log *zap.Logger) *QuizService {
	return &QuizService{
		sessions: sessions,
		banks:    banks,
		reporter: reporter,
		log:      log,
		now:      time.Now,
		shuffle:  rand.Shuffle,
	}
}

// WithClock is test-only for deterministic timestamps and ordering.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	s.shuffle = func(int, func(i, j int)) {}
	return s
}

// StartQuiz selects questions for the given language and filter and opens a
// new session. An empty selection reports the no-content condition via
// domain.ErrNoQuestions rather than presenting anything.
func (s *QuizService) StartQuiz(ctx context.Context, userID, language, category string, limit int) (*Session, domain.Question, error) {
	bank, err := s.banks.GetBank(ctx, language)
	if err != nil {
		return nil, domain.Question{}, fmt.Errorf("load bank %q: %w", language, err)
	}

	questions := selectQuestions(bank.Questions, category, limit, s.shuffle)

	// The local state transition into Finished happens synchronously inside
	// the session; persistence is fired asynchronously and never blocks or
	// retries the completion flow.
	var session *Session
	onFinish := func(result domain.QuizResult) {
		if s.reporter == nil {
			return
		}
		go s.reporter.Report(context.Background(), session, result)
	}
	session, err = newSessionWithClock(uuid.NewString(), userID, language, category, questions, onFinish, s.now)
	if err != nil {
		return nil, domain.Question{}, err
	}

	s.sessions.Put(session)
	first := questions[0]
	s.log.Info("quiz started",
		zap.String("session", session.ID()),
		zap.String("user", userID),
		zap.String("language", language),
		zap.Int("questions", len(questions)))
	return session, first, nil
}

// Submit scores an answer for the session's current question.
func (s *QuizService) Submit(_ context.Context, sessionID string, sub domain.AnswerSubmission) (domain.AnswerRecord, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrSessionNotFound
	}
	return session.Submit(sub)
}

// Advance moves the session past an answered question. When the last
// question is passed, the session is finished, reported, and dropped.
func (s *QuizService) Advance(_ context.Context, sessionID string) (*domain.Question, *domain.QuizResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	next, result, err := session.Advance()
	if err != nil {
		return nil, nil, err
	}
	if result != nil {
		s.sessions.Delete(sessionID)
	}
	return next, result, nil
}

// Abandon drops an in-progress session without persisting anything.
func (s *QuizService) Abandon(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	s.sessions.Delete(sessionID)
	if !session.Finished() {
		s.log.Info("quiz abandoned", zap.String("session", sessionID), zap.String("user", session.UserID()))
	}
}

// Get returns an active session by ID.
func (s *QuizService) Get(sessionID string) (*Session, bool) {
	return s.sessions.Get(sessionID)
}

func selectQuestions(all []domain.Question, category string, limit int, shuffle func(n int, swap func(i, j int))) []domain.Question {
	selected := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if category != "" && !strings.EqualFold(q.Category, category) {
			continue
		}
		selected = append(selected, q)
	}
	shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
