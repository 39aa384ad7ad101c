package handlers

import (
	"net/http"
	"time"

	"github.com/cloo-solutions/aqacs/internal/api"
)

type HealthHandler struct {
	env string
	now func() time.Time
}

func NewHealthHandler(env string) *HealthHandler {
	if env == "" {
		env = "dev"
	}
	return &HealthHandler{env: env, now: time.Now}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Env       string `json:"env"`
	Timestamp string `json:"timestamp"`
}

// Health always reports ok. It checks no dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Env:       h.env,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
