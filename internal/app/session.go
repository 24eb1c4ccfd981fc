package app

import (
	"fmt"
	"sync"
	"time"

	"lingua-quiz-service/internal/domain"
)

type sessionState int

const (
	statePresenting sessionState = iota
	stateAnswered
	stateFinished
)

// Session walks one user through an ordered question sequence:
// presenting -> answered -> presenting(next) ... -> finished.
// All methods are safe for concurrent use, though the transport already
// serializes input per connection.
type Session struct {
	id       string
	userID   string
	language string
	category string

	mu        sync.Mutex
	questions []domain.Question
	state     sessionState
	index     int
	score     int
	answers   []domain.AnswerRecord
	startedAt time.Time
	now       func() time.Time
	result    domain.QuizResult
	onFinish  func(domain.QuizResult)
}

// NewSession is exported for stores that need to seed sessions.
func NewSession(id, userID, language, category string, questions []domain.Question, onFinish func(domain.QuizResult)) (*Session, error) {
	return newSessionWithClock(id, userID, language, category, questions, onFinish, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, userID, language, category string, questions []domain.Question, onFinish func(domain.QuizResult), now func() time.Time) (*Session, error) {
	return newSessionWithClock(id, userID, language, category, questions, onFinish, now)
}

func newSessionWithClock(id, userID, language, category string, questions []domain.Question, onFinish func(domain.QuizResult), now func() time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return &Session{
		id:        id,
		userID:    userID,
		language:  language,
		category:  category,
		questions: questions,
		state:     statePresenting,
		answers:   make([]domain.AnswerRecord, 0, len(questions)),
		startedAt: now(),
		now:       now,
		onFinish:  onFinish,
	}, nil
}

func (s *Session) ID() string       { return s.id }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) Language() string { return s.language }
func (s *Session) Category() string { return s.category }

// Current returns the question being presented or answered.
func (s *Session) Current() (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateFinished {
		return domain.Question{}, domain.ErrQuizFinished
	}
	return s.questions[s.index], nil
}

// Progress reports the 1-based question number and the total count.
func (s *Session) Progress() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.index + 1
	if s.state == stateFinished {
		n = len(s.questions)
	}
	return n, len(s.questions)
}

// Elapsed returns whole seconds since the session started.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Session) elapsedLocked() int {
	if s.state == stateFinished {
		return s.result.TimeSpent
	}
	return int(s.now().Sub(s.startedAt).Seconds())
}

// Submit scores an answer against the current question. It is valid only in
// the presenting state: a repeat submission for an already-scored question is
// rejected and never changes the score.
func (s *Session) Submit(sub domain.AnswerSubmission) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateFinished:
		return domain.AnswerRecord{}, domain.ErrQuizFinished
	case stateAnswered:
		return domain.AnswerRecord{}, domain.ErrAlreadyAnswered
	}

	question := s.questions[s.index]
	if sub.QuestionID != "" && sub.QuestionID != question.ID {
		return domain.AnswerRecord{}, fmt.Errorf("%w: question %q is not current", domain.ErrNotPresenting, sub.QuestionID)
	}

	correct, given := domain.ScoreAnswer(question, sub)
	record := domain.AnswerRecord{
		QuestionID: question.ID,
		Given:      given,
		Correct:    correct,
	}
	s.answers = append(s.answers, record)
	if correct {
		s.score++
	}
	s.state = stateAnswered
	return record, nil
}

// Advance moves past an answered question. It returns the next question, or
// a final result once the last question has been passed. The finish callback
// fires exactly once, on the transition into the finished state.
func (s *Session) Advance() (*domain.Question, *domain.QuizResult, error) {
	s.mu.Lock()

	switch s.state {
	case stateFinished:
		s.mu.Unlock()
		return nil, nil, domain.ErrQuizFinished
	case statePresenting:
		s.mu.Unlock()
		return nil, nil, domain.ErrNotAnswered
	}

	if s.index+1 < len(s.questions) {
		s.index++
		s.state = statePresenting
		next := s.questions[s.index]
		s.mu.Unlock()
		return &next, nil, nil
	}

	total := len(s.questions)
	s.result = domain.QuizResult{
		Score:       s.score,
		Total:       total,
		Accuracy:    float64(s.score) / float64(total) * 100,
		TimeSpent:   s.elapsedLocked(),
		CompletedAt: s.now(),
	}
	s.state = stateFinished
	result := s.result
	callback := s.onFinish
	s.onFinish = nil
	s.mu.Unlock()

	if callback != nil {
		callback(result)
	}
	return nil, &result, nil
}

// Result returns the final tally once the session has finished.
func (s *Session) Result() (domain.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateFinished {
		return domain.QuizResult{}, false
	}
	return s.result, true
}

// Answers returns a copy of the scored answers so far.
func (s *Session) Answers() []domain.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnswerRecord, len(s.answers))
	copy(out, s.answers)
	return out
}

// Score returns the current number of correct answers.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Finished reports whether the session reached its terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateFinished
}
