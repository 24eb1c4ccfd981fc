package speech

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"lingua-quiz-service/internal/domain"
)

// Utterance is one text-to-speech request.
type Utterance struct {
	Text        string  `json:"text"`
	LanguageTag string  `json:"languageTag"`
	Rate        float64 `json:"rate,omitempty"`
	Pitch       float64 `json:"pitch,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
}

// Backend is the platform speech API. Implementations are expected to block
// until the utterance finishes or its context is cancelled.
type Backend interface {
	Synthesize(ctx context.Context, u Utterance) error
}

// Synthesizer speaks utterances best-effort and fire-and-forget. Each call
// cancels the previous utterance; there is no completion ordering guarantee
// across overlapping calls. Unavailability is logged and skipped, never
// surfaced to the quiz flow.
type Synthesizer struct {
	backend Backend
	log     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSynthesizer(backend Backend, log *zap.Logger) *Synthesizer {
	return &Synthesizer{backend: backend, log: log}
}

// Available reports whether a speech backend is configured.
func (s *Synthesizer) Available() bool {
	return s.backend != nil
}

// Speak starts the utterance in the background, cancelling any utterance
// still playing.
func (s *Synthesizer) Speak(ctx context.Context, u Utterance) {
	if !s.Available() {
		s.log.Debug("speech skipped", zap.Error(domain.ErrSpeechUnavailable))
		return
	}
	if u.Rate == 0 {
		u.Rate = 1.0
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		if err := s.backend.Synthesize(ctx, u); err != nil && ctx.Err() == nil {
			s.log.Debug("speech synthesis failed", zap.String("lang", u.LanguageTag), zap.Error(err))
		}
	}()
}

// Stop cancels the utterance currently playing, if any.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
