package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	Database   Pinger
	Blockchain bool
	Env        string
	started    time.Time
}

func NewHealthHandler(db Pinger, blockchain bool, env string) *HealthHandler {
	return &HealthHandler{Database: db, Blockchain: blockchain, Env: env, started: time.Now()}
}

// HealthHandler GET /health. Answers 503 when the database is unreachable.
func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code, database := "ok", http.StatusOK, "connected"
	if err := h.Database.Ping(ctx); err != nil {
		status, code, database = "degraded", http.StatusServiceUnavailable, "disconnected"
	}

	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"env":        h.Env,
		"database":   database,
		"blockchain": h.Blockchain,
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"timestamp":  time.Now().UTC(),
	})
}
