package handlers

import (
	"net/http"

	"github.com/dxsocial/backend/internal/services"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RewardHandler serves tasks, check-ins, points and subscription status.
type RewardHandler struct {
	Service *services.RewardService
}

func NewRewardHandler(service *services.RewardService) *RewardHandler {
	return &RewardHandler{Service: service}
}

// ListTasksHandler lists active tasks. GET /rewards/tasks
func (h *RewardHandler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Service.ListTasks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// UserTasksHandler lists tasks with the caller's progress. GET /rewards/tasks/me
func (h *RewardHandler) UserTasksHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	grouped, err := h.Service.GetUserTasks(r.Context(), claims.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

// CompleteTaskHandler POST /rewards/tasks/{taskId}/complete
func (h *RewardHandler) CompleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	res, err := h.Service.CompleteTask(r.Context(), claims.Address, mux.Vars(r)["taskId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CheckInHandler POST /rewards/checkin
func (h *RewardHandler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	res, err := h.Service.CheckIn(r.Context(), claims.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"address": claims.Address,
		"streak":  res.Streak,
		"points":  res.PointsEarned,
	}).Info("Daily check-in recorded")
	writeJSON(w, http.StatusOK, res)
}

func (h *RewardHandler) PointsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.GetPoints(r.Context(), claims.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *RewardHandler) SubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	status, err := h.Service.SubscriptionStatus(r.Context(), claims.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
