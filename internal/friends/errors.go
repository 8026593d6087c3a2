package friends

import (
	"errors"
	"fmt"

	"github.com/friendcircle/backend/internal/models"
)

var (
	// ErrInvalidArgument indicates malformed input such as an empty id or an
	// unknown status value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound indicates a referenced user or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyFriends indicates the two users already share a friendship.
	ErrAlreadyFriends = errors.New("already in friend list")
	// ErrInvalidState indicates a decision was attempted on a request that is
	// no longer pending.
	ErrInvalidState = errors.New("request already resolved")
	// ErrForbidden indicates the actor is not the recipient of the request.
	ErrForbidden = errors.New("actor is not the request recipient")
)

// DuplicateRequestError reports that a request already exists between the
// unordered pair of users. The message depends on the existing status so the
// caller can surface it verbatim.
type DuplicateRequestError struct {
	Status models.RequestStatus
}

func (e *DuplicateRequestError) Error() string {
	switch e.Status {
	case models.StatusPending:
		return "a request between these users is awaiting a response"
	case models.StatusAccepted:
		return "these users are already friends"
	case models.StatusRejected:
		return "a previous request between these users was rejected"
	}
	return fmt.Sprintf("a request between these users already exists (status %s)", e.Status)
}
