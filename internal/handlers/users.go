package handlers

import (
	"net/http"
	"strconv"

	"github.com/friendcircle/backend/internal/logging"
)

// UserHandler provides user directory endpoints.
type UserHandler struct {
	Users UserStore
}

// List handles GET /api/v1/users, filtered by the isActive query parameter
// (default false, matching accounts awaiting activation).
func (h UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "user service unavailable"})
		return
	}

	active := false
	if raw := r.URL.Query().Get("isActive"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "isActive must be a boolean"})
			return
		}
		active = parsed
	}

	users, err := h.Users.ListByActive(ctx, active)
	if err != nil {
		logger.Error("list users failed", "error", err, "isActive", active)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to list users"})
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}

	respondJSON(ctx, w, http.StatusOK, userListResponse{Users: out})
}

type userListResponse struct {
	Users []userDTO `json:"users"`
}
