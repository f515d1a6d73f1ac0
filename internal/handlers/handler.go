package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/artzymeri/miteinander/internal/models"
	"github.com/artzymeri/miteinander/internal/store"
)

// PresenceQuerier exposes the gateway's advisory online check.
type PresenceQuerier interface {
	IsOnline(role models.Role, id int64) bool
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db       store.DataStore
	redis    *store.RedisStore
	presence PresenceQuerier
}

// NewHandler creates a new Handler with the given dependencies. redis may be
// nil when no Redis is configured.
func NewHandler(db store.DataStore, redis *store.RedisStore, presence PresenceQuerier) *Handler {
	return &Handler{db: db, redis: redis, presence: presence}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
