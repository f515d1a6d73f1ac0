package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/artzymeri/miteinander/internal/models"
)

// WhoResponse reports advisory presence for an identity.
type WhoResponse struct {
	Role   models.Role `json:"role"`
	ID     int64       `json:"id"`
	Online bool        `json:"online"`
}

// Who handles the presence query: is this identity currently connected to
// this instance. Best-effort only; presence is process-local.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	role, ok := models.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid id format")
		return
	}

	h.JSON(w, http.StatusOK, WhoResponse{
		Role:   role,
		ID:     id,
		Online: h.presence.IsOnline(role, id),
	})
}
