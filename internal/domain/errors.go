package domain

import "errors"

var (
	// ErrNoQuestions is returned when a quiz is started with no content.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSessionNotFound is returned when a quiz session has not been started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotPresenting is returned for answers submitted outside the presenting state.
	ErrNotPresenting = errors.New("no question awaiting an answer")
	// ErrAlreadyAnswered is returned when the current question was already scored.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotAnswered is returned for advance calls before the current question is scored.
	ErrNotAnswered = errors.New("current question not answered yet")
	// ErrQuizFinished is returned for actions on a completed session.
	ErrQuizFinished = errors.New("quiz already finished")
	// ErrBankNotFound indicates no question bank exists for a language.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrProfileNotFound indicates the user has no profile row yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrSettingsNotFound indicates the user has never saved preferences.
	ErrSettingsNotFound = errors.New("settings not found")
	// ErrSpeechUnavailable indicates no speech backend is configured.
	ErrSpeechUnavailable = errors.New("speech synthesis unavailable")
)
