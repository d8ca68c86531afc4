package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Message string `json:"message"`
	Env     string `json:"env"`
	Uptime  string `json:"uptime"`
}

type HealthHandler struct {
	env     string
	started time.Time
}

func NewHealthHandler(env string) *HealthHandler {
	return &HealthHandler{env: env, started: time.Now()}
}

// Ping answers /health-check/ping; any other action is rejected.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") != "ping" {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Message: "pong",
		Env:     h.env,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}
