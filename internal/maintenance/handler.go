package maintenance

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"taskbox/internal/auth"
	"taskbox/internal/observability"
)

// CleanupHandler drives the scheduled sweep that clears long-expired
// OTP challenges and lapsed lockouts. It is invoked by an external cron
// and gated by a shared secret rather than a user session.
type CleanupHandler struct {
	repo       *auth.Repository
	logger     *observability.Logger
	cronSecret string
	retention  time.Duration
}

func NewCleanupHandler(repo *auth.Repository, logger *observability.Logger, cronSecret string, retention time.Duration) *CleanupHandler {
	return &CleanupHandler{
		repo:       repo,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		retention:  retention,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	result, err := h.repo.CleanupStaleAuthState(r.Context(), h.retention, time.Now().UTC())
	if err != nil {
		h.logger.Error("auth_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	h.logger.Info("auth_cleanup_completed", map[string]any{
		"cleared_challenges": result.ClearedChallenges,
		"cleared_lockouts":   result.ClearedLockouts,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
