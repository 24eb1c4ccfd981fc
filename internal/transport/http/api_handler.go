package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lingua-quiz-service/internal/app"
	"lingua-quiz-service/internal/auth"
	"lingua-quiz-service/internal/domain"
	"lingua-quiz-service/internal/i18n"
)

// APIHandler serves the read-side REST endpoints: leaderboard, history,
// stats, profile, and settings.
type APIHandler struct {
	poller   *app.LeaderboardPoller
	history  app.HistoryStore
	profiles app.ProfileStore
	settings *app.SettingsManager
	verifier *auth.Verifier
	locales  *i18n.Table
	log      *zap.Logger
}

func NewAPIHandler(poller *app.LeaderboardPoller, history app.HistoryStore, profiles app.ProfileStore, settings *app.SettingsManager, verifier *auth.Verifier, locales *i18n.Table, log *zap.Logger) *APIHandler {
	return &APIHandler{
		poller:   poller,
		history:  history,
		profiles: profiles,
		settings: settings,
		verifier: verifier,
		locales:  locales,
		log:      log,
	}
}

// Register mounts the handler's routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /leaderboard", h.leaderboard)
	mux.HandleFunc("GET /history", h.listHistory)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /profile", h.profile)
	mux.HandleFunc("GET /settings", h.getSettings)
	mux.HandleFunc("PUT /settings", h.putSettings)
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	snapshot := h.poller.Snapshot()
	if snapshot.Entries == nil {
		snapshot.Entries = []domain.RankedEntry{}
	}
	if userID := r.URL.Query().Get("userId"); userID != "" {
		if rank, err := h.poller.OwnRank(r.Context(), userID); err == nil {
			snapshot.OwnRank = rank
		}
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *APIHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := h.callerID(r)
	if err != nil {
		h.unauthorized(w)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := h.history.List(r.Context(), userID, limit)
	if err != nil {
		h.serverError(w, r, "history list failed", err)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *APIHandler) stats(w http.ResponseWriter, r *http.Request) {
	userID, err := h.callerID(r)
	if err != nil {
		h.unauthorized(w)
		return
	}
	stats, err := h.history.Aggregate(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "history aggregate failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.callerID(r)
	if err != nil {
		h.unauthorized(w)
		return
	}
	profile, err := h.profiles.Get(r.Context(), userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "profile not found"})
		return
	}
	if err != nil {
		h.serverError(w, r, "profile read failed", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := h.callerID(r)
	if err != nil {
		h.unauthorized(w)
		return
	}
	settings, err := h.settings.Load(r.Context(), userID)
	if err != nil {
		// Defaults still apply; degrade rather than fail the page.
		h.log.Warn("settings load degraded to defaults", zap.String("user", userID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *APIHandler) putSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := h.callerID(r)
	if err != nil {
		h.unauthorized(w)
		return
	}
	var incoming domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid settings payload"})
		return
	}
	updated := h.settings.Update(userID, func(s *domain.Settings) {
		*s = incoming
	})
	if err := h.settings.Save(r.Context(), userID); err != nil {
		h.serverError(w, r, "settings save failed", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// callerID resolves the requesting user, from the bearer token when
// verification is configured and from the userId parameter otherwise.
func (h *APIHandler) callerID(r *http.Request) (string, error) {
	if h.verifier != nil && h.verifier.Enabled() {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		identity, err := h.verifier.Verify(raw)
		if err != nil {
			return "", err
		}
		return identity.UserID, nil
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return "", errors.New("missing userId")
	}
	return userID, nil
}

func (h *APIHandler) unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorPayload{Message: "unauthorized"})
}

func (h *APIHandler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.Warn(msg, zap.Error(err))
	uiLang := r.URL.Query().Get("uiLang")
	writeJSON(w, http.StatusInternalServerError, errorPayload{Message: h.locales.T(uiLang, "error.generic")})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
