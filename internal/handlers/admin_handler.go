package handlers

import (
	"context"
	"net/http"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AdminHandler manages tasks and triggers sync jobs by hand.
type AdminHandler struct {
	Rewards   *services.RewardService
	Sync      *services.SyncService
	Analytics *services.AnalyticsService
}

func NewAdminHandler(rewards *services.RewardService, sync *services.SyncService, analytics *services.AnalyticsService) *AdminHandler {
	return &AdminHandler{Rewards: rewards, Sync: sync, Analytics: analytics}
}

// CreateTaskHandler POST /admin/tasks
func (h *AdminHandler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := decodeJSON(r, &task); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.Rewards.CreateTask(r.Context(), &task)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"admin": middleware.ViewerAddress(r.Context()),
		"task":  created.Name,
	}).Info("Task created")
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTaskHandler PUT /admin/tasks/{id}
func (h *AdminHandler) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var upd services.TaskUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.Rewards.UpdateTask(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeactivateTaskHandler DELETE /admin/tasks/{id}
func (h *AdminHandler) DeactivateTaskHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Rewards.DeactivateTask(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Task deactivated")
}

// SyncHandler runs one background job now. POST /admin/sync/{job}
func (h *AdminHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	job := mux.Vars(r)["job"]

	var run func(ctx context.Context) (int, error)
	switch job {
	case "nft-events":
		run = h.Sync.SyncRecentEvents
	case "nft-data":
		run = h.Sync.SyncNFTData
	case "subscriptions":
		run = h.Sync.SyncSubscriptions
	case "trending":
		run = func(ctx context.Context) (int, error) {
			return 0, h.Analytics.UpdateTrendingScores(ctx)
		}
	default:
		writeError(w, r, apperr.Newf(apperr.ErrNotFound, "Unknown sync job %q", job))
		return
	}

	if job != "trending" && !h.Sync.Enabled() {
		writeError(w, r, apperr.New(apperr.ErrUnavailable, "Blockchain is not configured"))
		return
	}

	n, err := run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"admin": middleware.ViewerAddress(r.Context()),
		"job":   job,
		"count": n,
	}).Info("Manual sync finished")
	writeJSON(w, http.StatusOK, map[string]interface{}{"job": job, "processed": n})
}
