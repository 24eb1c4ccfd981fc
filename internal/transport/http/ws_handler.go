package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lingua-quiz-service/internal/app"
	"lingua-quiz-service/internal/auth"
	"lingua-quiz-service/internal/domain"
	"lingua-quiz-service/internal/i18n"
	"lingua-quiz-service/internal/speech"
)

// WSHandler drives one quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	synth    *speech.Synthesizer
	locales  *i18n.Table
	verifier *auth.Verifier
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, synth *speech.Synthesizer, locales *i18n.Table, verifier *auth.Verifier, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service:  service,
		synth:    synth,
		locales:  locales,
		verifier: verifier,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Language string `json:"language"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex *int   `json:"optionIndex,omitempty"`
	Text        string `json:"text,omitempty"`
}

// questionView is the client-facing question with correct answers stripped.
type questionView struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Category   string   `json:"category,omitempty"`
	Number     int      `json:"number"`
	Total      int      `json:"total"`
}

type answerResult struct {
	QuestionID  string `json:"questionId"`
	Correct     bool   `json:"correct"`
	Given       string `json:"given"`
	Explanation string `json:"explanation,omitempty"`
	Score       int    `json:"score"`
	Label       string `json:"label"`
}

type finishedPayload struct {
	domain.QuizResult
	Label string `json:"label"`
}

type tickPayload struct {
	ElapsedSeconds int `json:"elapsedSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into the quiz use
// cases. One second ticks report elapsed time while a session is active; the
// ticker and any in-progress session are torn down when the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identify(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	uiLang := r.URL.Query().Get("uiLang")
	if uiLang == "" {
		uiLang = "en"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	var (
		mu      sync.Mutex
		session *app.Session
	)
	current := func() *app.Session {
		mu.Lock()
		defer mu.Unlock()
		return session
	}
	setSession := func(next *app.Session) {
		mu.Lock()
		session = next
		mu.Unlock()
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s := current()
				if s == nil || s.Finished() {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{ElapsedSeconds: s.Elapsed()}}:
				case <-done:
					return
				}
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Language == "" {
				send <- h.errorMsg(uiLang, "invalid start payload")
				continue
			}
			if prev := current(); prev != nil && !prev.Finished() {
				h.service.Abandon(r.Context(), prev.ID())
			}
			next, first, err := h.service.StartQuiz(r.Context(), identity.UserID, payload.Language, payload.Category, payload.Limit)
			if err != nil {
				if errors.Is(err, domain.ErrNoQuestions) || errors.Is(err, domain.ErrBankNotFound) {
					send <- outboundMessage[any]{Type: "noContent", Payload: errorPayload{
						Message: h.locales.T(uiLang, "quiz.no_content"),
					}}
				} else {
					h.log.Warn("start quiz failed", zap.String("user", identity.UserID), zap.Error(err))
					send <- h.errorMsg(uiLang, "")
				}
				continue
			}
			setSession(next)
			_, total := next.Progress()
			send <- outboundMessage[any]{Type: "question", Payload: viewOf(first, 1, total)}

		case "answer":
			s := current()
			if s == nil {
				send <- h.errorMsg(uiLang, domain.ErrSessionNotFound.Error())
				continue
			}
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- h.errorMsg(uiLang, "invalid answer payload")
				continue
			}
			record, err := h.service.Submit(r.Context(), s.ID(), domain.AnswerSubmission{
				QuestionID:  payload.QuestionID,
				OptionIndex: payload.OptionIndex,
				Text:        payload.Text,
			})
			if err != nil {
				// Repeat submissions are rejected without rescoring.
				send <- h.errorMsg(uiLang, err.Error())
				continue
			}
			question, _ := s.Current()
			label := h.locales.T(uiLang, "quiz.incorrect")
			if record.Correct {
				label = h.locales.T(uiLang, "quiz.correct")
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID:  record.QuestionID,
				Correct:     record.Correct,
				Given:       record.Given,
				Explanation: question.Explanation,
				Score:       s.Score(),
				Label:       label,
			}}

		case "advance":
			s := current()
			if s == nil {
				send <- h.errorMsg(uiLang, domain.ErrSessionNotFound.Error())
				continue
			}
			next, result, err := h.service.Advance(r.Context(), s.ID())
			if err != nil {
				send <- h.errorMsg(uiLang, err.Error())
				continue
			}
			if result != nil {
				setSession(nil)
				send <- outboundMessage[any]{Type: "finished", Payload: finishedPayload{
					QuizResult: *result,
					Label:      h.locales.T(uiLang, "quiz.finished"),
				}}
				continue
			}
			number, total := s.Progress()
			send <- outboundMessage[any]{Type: "question", Payload: viewOf(*next, number, total)}

		case "speak":
			var payload speech.Utterance
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Text == "" {
				continue
			}
			h.synth.Speak(r.Context(), payload)

		default:
			send <- h.errorMsg(uiLang, "unsupported message type")
		}
	}

	if s := current(); s != nil && !s.Finished() {
		h.service.Abandon(r.Context(), s.ID())
	}
	h.synth.Stop()
	close(done)
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) identify(r *http.Request) (auth.Identity, error) {
	if h.verifier != nil && h.verifier.Enabled() {
		return h.verifier.Verify(r.URL.Query().Get("token"))
	}
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	if userID == "" || name == "" {
		return auth.Identity{}, errors.New("missing userId or name")
	}
	return auth.Identity{UserID: userID, DisplayName: name}, nil
}

func (h *WSHandler) errorMsg(uiLang, detail string) outboundMessage[any] {
	message := detail
	if message == "" {
		message = h.locales.T(uiLang, "error.generic")
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

func viewOf(q domain.Question, number, total int) questionView {
	options := q.Options
	if q.Type == domain.TrueFalse && len(options) == 0 {
		// Two fixed slots: 0 means true, 1 means false.
		options = []string{"True", "False"}
	}
	return questionView{
		ID:         q.ID,
		Type:       string(q.Type),
		Prompt:     q.Prompt,
		Options:    options,
		Difficulty: q.Difficulty,
		Category:   q.Category,
		Number:     number,
		Total:      total,
	}
}
