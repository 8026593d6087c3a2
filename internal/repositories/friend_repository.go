package repositories

import (
	"context"
	"time"

	"github.com/friendcircle/backend/internal/models"
)

// FriendRepository defines data access for friend requests and the
// friendships they materialize into.
//
// Create fails with ErrConflict when any request already exists for the
// unordered {from, to} pair. Resolve applies the status transition and, on
// acceptance, both symmetric friend-list updates as one atomic unit; it
// fails with ErrConflict when the request is no longer pending.
type FriendRepository interface {
	Create(ctx context.Context, request models.FriendRequest) error
	FindByID(ctx context.Context, id string) (models.FriendRequest, error)
	FindByPair(ctx context.Context, a, b string) (models.FriendRequest, error)
	ListForRecipient(ctx context.Context, to string, status models.RequestStatus) ([]models.FriendRequest, error)
	Resolve(ctx context.Context, requestID string, status models.RequestStatus, at time.Time) (models.FriendRequest, error)
}
