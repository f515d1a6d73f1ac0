package handlers

import (
	"net/http"
	"strconv"

	"github.com/artzymeri/miteinander/internal/api/middleware"
	"github.com/artzymeri/miteinander/internal/models"
)

// NotificationsResponse is the queued-notification inbox for the caller.
type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

// GetNotifications returns events that targeted the caller's personal room
// while they had no live connection. Passing ?clear=true drains the inbox
// after reading.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.redis == nil {
		h.JSON(w, http.StatusOK, NotificationsResponse{Notifications: []models.Notification{}})
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	notifications, err := h.redis.GetNotifications(r.Context(), identity.Key(), limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	if r.URL.Query().Get("clear") == "true" {
		// Reading succeeded; a failed drain only means duplicates on the
		// next fetch.
		_ = h.redis.ClearNotifications(r.Context(), identity.Key())
	}

	h.JSON(w, http.StatusOK, NotificationsResponse{Notifications: notifications})
}
