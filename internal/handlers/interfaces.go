package handlers

import (
	"context"

	"github.com/friendcircle/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth and
// user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	ListByActive(ctx context.Context, active bool) ([]models.User, error)
}

// SessionManager issues, refreshes, and resolves authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Resolve(ctx context.Context, accessToken string) (string, error)
}

// FriendService captures the friend request workflow required by the friend
// handlers.
type FriendService interface {
	SendRequest(ctx context.Context, fromID, toID string) (models.FriendRequest, error)
	ListRequests(ctx context.Context, recipientID, status string) ([]models.FriendRequest, error)
	DecideRequest(ctx context.Context, actorID, requestID, newStatus string) (models.FriendRequest, error)
	ListFriends(ctx context.Context, userID string) ([]models.User, error)
}
