package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/friendcircle/backend/internal/auth"
	"github.com/friendcircle/backend/internal/friends"
	"github.com/friendcircle/backend/internal/logging"
	"github.com/friendcircle/backend/internal/models"
)

// FriendHandler provides friend request and friend list endpoints. All of
// its routes sit behind the access gate, so the caller identity is taken
// from the request context.
type FriendHandler struct {
	Friends FriendService
}

// Send handles POST /api/v1/friends/request.
func (h FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	var req sendFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid friend request payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	caller := auth.IdentityFromContext(ctx)
	req.From = strings.TrimSpace(req.From)
	if req.From == "" {
		req.From = caller
	}
	if req.From != caller {
		logger.Warn("friend request sender mismatch", "caller", caller, "from", req.From)
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "cannot send requests on behalf of another user"})
		return
	}

	request, err := h.Friends.SendRequest(ctx, req.From, strings.TrimSpace(req.To))
	if err != nil {
		respondFriendError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, friendRequestResponse{Request: toFriendRequestDTO(request)})
}

// ListRequests handles GET /api/v1/friends/requests. The status query
// parameter defaults to pending.
func (h FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	caller := auth.IdentityFromContext(ctx)
	status := r.URL.Query().Get("status")

	requests, err := h.Friends.ListRequests(ctx, caller, status)
	if err != nil {
		respondFriendError(ctx, w, err)
		return
	}

	out := make([]friendRequestDTO, 0, len(requests))
	for _, request := range requests {
		out = append(out, toFriendRequestDTO(request))
	}

	respondJSON(ctx, w, http.StatusOK, friendRequestListResponse{Requests: out})
}

// Respond handles POST /api/v1/friends/respond, accepting or rejecting a
// pending request addressed to the caller.
func (h FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	var req respondFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid respond payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	caller := auth.IdentityFromContext(ctx)
	request, err := h.Friends.DecideRequest(ctx, caller, strings.TrimSpace(req.RequestID), strings.TrimSpace(req.Status))
	if err != nil {
		respondFriendError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, friendRequestResponse{Request: toFriendRequestDTO(request)})
}

// ListFriends handles GET /api/v1/friends, returning the caller's resolved
// friend list.
func (h FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	caller := auth.IdentityFromContext(ctx)
	users, err := h.Friends.ListFriends(ctx, caller)
	if err != nil {
		respondFriendError(ctx, w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}

	respondJSON(ctx, w, http.StatusOK, friendListResponse{Friends: out})
}

// respondFriendError maps the engine's error taxonomy onto HTTP statuses,
// surfacing the engine's messages verbatim.
func respondFriendError(ctx context.Context, w http.ResponseWriter, err error) {
	var duplicate *friends.DuplicateRequestError

	switch {
	case errors.Is(err, friends.ErrInvalidArgument):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, friends.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, friends.ErrAlreadyFriends):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &duplicate):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": duplicate.Error()})
	case errors.Is(err, friends.ErrInvalidState):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, friends.ErrForbidden):
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		logging.FromContext(ctx).Error("friend operation failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

type sendFriendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type respondFriendRequest struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

type friendRequestDTO struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type friendRequestResponse struct {
	Request friendRequestDTO `json:"request"`
}

type friendRequestListResponse struct {
	Requests []friendRequestDTO `json:"requests"`
}

type friendListResponse struct {
	Friends []userDTO `json:"friends"`
}

func toFriendRequestDTO(request models.FriendRequest) friendRequestDTO {
	return friendRequestDTO{
		ID:        request.ID,
		From:      request.From,
		To:        request.To,
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
	}
}
