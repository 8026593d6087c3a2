package models

import "time"

// RequestStatus enumerates the lifecycle states of a friend request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus validates a raw status string against the closed set.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	switch RequestStatus(raw) {
	case StatusPending, StatusAccepted, StatusRejected:
		return RequestStatus(raw), true
	}
	return "", false
}

// Terminal reports whether no further transition is possible from s.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// User represents an account within the FriendCircle platform.
// FriendList holds ids of confirmed bidirectional friendships; only the
// friend request accept path mutates it.
type User struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Password   string
	IsActive   bool
	FriendList []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FriendRequest represents the invitation workflow between two users.
// From and To reference existing users; Status starts pending and
// transitions exactly once to accepted or rejected.
type FriendRequest struct {
	ID        string
	From      string
	To        string
	Status    RequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
