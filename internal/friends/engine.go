package friends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/friendcircle/backend/internal/models"
	"github.com/friendcircle/backend/internal/repositories"
)

// UserDirectory resolves user records on behalf of the engine.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	ListFriends(ctx context.Context, id string) ([]models.User, error)
}

// RequestStore persists friend requests and applies decisions atomically.
//
// Resolve must perform a compare-and-set keyed on status = pending together
// with the symmetric friend-list updates in a single transaction, returning
// repositories.ErrConflict when the request is no longer pending.
type RequestStore interface {
	Create(ctx context.Context, request models.FriendRequest) error
	FindByID(ctx context.Context, id string) (models.FriendRequest, error)
	FindByPair(ctx context.Context, a, b string) (models.FriendRequest, error)
	ListForRecipient(ctx context.Context, to string, status models.RequestStatus) ([]models.FriendRequest, error)
	Resolve(ctx context.Context, requestID string, status models.RequestStatus, at time.Time) (models.FriendRequest, error)
}

// Engine validates and executes the friend request workflow. It holds no
// mutable state of its own; everything lives in the stores, so concurrent
// callers only contend on the rows they touch.
type Engine struct {
	users    UserDirectory
	requests RequestStore

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewEngine constructs an Engine backed by the provided stores.
func NewEngine(users UserDirectory, requests RequestStore) *Engine {
	if users == nil || requests == nil {
		panic("friends: engine stores must not be nil")
	}
	return &Engine{users: users, requests: requests}
}

// SendRequest creates a pending friend request from fromID to toID.
//
// It fails with ErrNotFound when either user is unknown, ErrAlreadyFriends
// when a friendship already exists, and DuplicateRequestError when any
// request already exists for the unordered pair, whatever its status.
func (e *Engine) SendRequest(ctx context.Context, fromID, toID string) (models.FriendRequest, error) {
	if fromID == "" || toID == "" {
		return models.FriendRequest{}, fmt.Errorf("%w: both user ids are required", ErrInvalidArgument)
	}
	if fromID == toID {
		return models.FriendRequest{}, fmt.Errorf("%w: cannot send a friend request to yourself", ErrInvalidArgument)
	}

	fromUser, err := e.users.FindByID(ctx, fromID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FriendRequest{}, fmt.Errorf("%w: user %s", ErrNotFound, fromID)
		}
		return models.FriendRequest{}, fmt.Errorf("look up sender: %w", err)
	}

	toUser, err := e.users.FindByID(ctx, toID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FriendRequest{}, fmt.Errorf("%w: user %s", ErrNotFound, toID)
		}
		return models.FriendRequest{}, fmt.Errorf("look up recipient: %w", err)
	}

	if containsID(toUser.FriendList, fromID) || containsID(fromUser.FriendList, toID) {
		return models.FriendRequest{}, ErrAlreadyFriends
	}

	if existing, err := e.requests.FindByPair(ctx, fromID, toID); err == nil {
		return models.FriendRequest{}, &DuplicateRequestError{Status: existing.Status}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.FriendRequest{}, fmt.Errorf("look up existing request: %w", err)
	}

	now := e.now()
	request := models.FriendRequest{
		ID:        uuid.NewString(),
		From:      fromID,
		To:        toID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// Lost a creation race; report the winner's status.
			if existing, lookupErr := e.requests.FindByPair(ctx, fromID, toID); lookupErr == nil {
				return models.FriendRequest{}, &DuplicateRequestError{Status: existing.Status}
			}
			return models.FriendRequest{}, &DuplicateRequestError{Status: models.StatusPending}
		}
		return models.FriendRequest{}, fmt.Errorf("create friend request: %w", err)
	}

	return request, nil
}

// ListRequests returns requests addressed to recipientID with the given
// status. An empty status defaults to pending.
func (e *Engine) ListRequests(ctx context.Context, recipientID, status string) ([]models.FriendRequest, error) {
	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipient id is required", ErrInvalidArgument)
	}

	if status == "" {
		status = string(models.StatusPending)
	}
	parsed, ok := models.ParseRequestStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}

	requests, err := e.requests.ListForRecipient(ctx, recipientID, parsed)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return requests, nil
}

// DecideRequest transitions a pending request to accepted or rejected on
// behalf of actorID, who must be the request's recipient.
//
// The transition is atomic: concurrent competing decisions on the same
// request resolve to exactly one winner, the loser observing ErrInvalidState.
func (e *Engine) DecideRequest(ctx context.Context, actorID, requestID, newStatus string) (models.FriendRequest, error) {
	if actorID == "" || requestID == "" {
		return models.FriendRequest{}, fmt.Errorf("%w: actor and request ids are required", ErrInvalidArgument)
	}

	parsed, ok := models.ParseRequestStatus(newStatus)
	if !ok || !parsed.Terminal() {
		return models.FriendRequest{}, fmt.Errorf("%w: status must be accepted or rejected, got %q", ErrInvalidArgument, newStatus)
	}

	request, err := e.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FriendRequest{}, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
		}
		return models.FriendRequest{}, fmt.Errorf("look up request: %w", err)
	}

	if request.To != actorID {
		return models.FriendRequest{}, ErrForbidden
	}

	if request.Status.Terminal() {
		return models.FriendRequest{}, fmt.Errorf("%w: request is %s", ErrInvalidState, request.Status)
	}

	updated, err := e.requests.Resolve(ctx, requestID, parsed, e.now())
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return models.FriendRequest{}, fmt.Errorf("%w: request was resolved concurrently", ErrInvalidState)
		case errors.Is(err, repositories.ErrNotFound):
			return models.FriendRequest{}, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
		}
		return models.FriendRequest{}, fmt.Errorf("resolve request: %w", err)
	}

	return updated, nil
}

// ListFriends returns the resolved user records in userID's friend list, in
// list order.
func (e *Engine) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	if _, err := e.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	users, err := e.users.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return users, nil
}

func (e *Engine) now() time.Time {
	if e.NowFunc != nil {
		return e.NowFunc()
	}
	return time.Now().UTC()
}

func containsID(list []string, id string) bool {
	for _, entry := range list {
		if entry == id {
			return true
		}
	}
	return false
}
