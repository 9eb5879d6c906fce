package handlers

import (
	"net/http"

	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GET /notifications?unread=true
func (h *NotificationHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := h.Service.GetUserNotifications(r.Context(), claims.Address, unreadOnly, pageFromRequest(r))
	if err != nil {
		logger.Log.Errorf("Failed to fetch notifications: %v", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// PUT /notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.MarkNotificationAsRead(r.Context(), mux.Vars(r)["id"], claims.Address); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Notification marked as read")
}

// PUT /notifications/read-all
func (h *NotificationHandler) MarkAllAsReadHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.Service.MarkAllAsRead(r.Context(), claims.Address)
	if err != nil {
		logger.Log.Errorf("Failed to mark notifications as read: %v", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "All notifications marked as read", "count": n})
}

// DELETE /notifications/{id}
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteNotification(r.Context(), mux.Vars(r)["id"], claims.Address); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Notification deleted")
}
