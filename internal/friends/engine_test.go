package friends

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/friendcircle/backend/internal/models"
	"github.com/friendcircle/backend/internal/repositories"
)

// memoryState backs the in-memory stores with the same conditional-update
// semantics as the SQL repositories: a single lock plays the role of the
// database transaction.
type memoryState struct {
	mu       sync.Mutex
	users    map[string]models.User
	requests map[string]models.FriendRequest
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:    make(map[string]models.User),
		requests: make(map[string]models.FriendRequest),
	}
}

func (s *memoryState) addUser(firstName, email string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := models.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  "Tester",
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.users[user.ID] = user
	return user
}

func (s *memoryState) friendList(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users[id].FriendList...)
}

type memoryUsers struct{ state *memoryState }

func (s memoryUsers) FindByID(_ context.Context, id string) (models.User, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	user, ok := s.state.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s memoryUsers) ListFriends(_ context.Context, id string) ([]models.User, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	user, ok := s.state.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	var out []models.User
	for _, friendID := range user.FriendList {
		if friend, ok := s.state.users[friendID]; ok {
			out = append(out, friend)
		}
	}
	return out, nil
}

type memoryRequests struct{ state *memoryState }

func (s memoryRequests) Create(_ context.Context, request models.FriendRequest) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for _, existing := range s.state.requests {
		if samePair(existing, request.From, request.To) {
			return repositories.ErrConflict
		}
	}
	s.state.requests[request.ID] = request
	return nil
}

func (s memoryRequests) FindByID(_ context.Context, id string) (models.FriendRequest, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	request, ok := s.state.requests[id]
	if !ok {
		return models.FriendRequest{}, repositories.ErrNotFound
	}
	return request, nil
}

func (s memoryRequests) FindByPair(_ context.Context, a, b string) (models.FriendRequest, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for _, existing := range s.state.requests {
		if samePair(existing, a, b) {
			return existing, nil
		}
	}
	return models.FriendRequest{}, repositories.ErrNotFound
}

func (s memoryRequests) ListForRecipient(_ context.Context, to string, status models.RequestStatus) ([]models.FriendRequest, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	var out []models.FriendRequest
	for _, request := range s.state.requests {
		if request.To == to && request.Status == status {
			out = append(out, request)
		}
	}
	return out, nil
}

func (s memoryRequests) Resolve(_ context.Context, requestID string, status models.RequestStatus, at time.Time) (models.FriendRequest, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	request, ok := s.state.requests[requestID]
	if !ok {
		return models.FriendRequest{}, repositories.ErrNotFound
	}
	if request.Status != models.StatusPending {
		return models.FriendRequest{}, repositories.ErrConflict
	}

	request.Status = status
	request.UpdatedAt = at
	s.state.requests[requestID] = request

	if status == models.StatusAccepted {
		s.appendFriendLocked(request.To, request.From)
		s.appendFriendLocked(request.From, request.To)
	}

	return request, nil
}

func (s memoryRequests) appendFriendLocked(userID, friendID string) {
	user := s.state.users[userID]
	for _, existing := range user.FriendList {
		if existing == friendID {
			return
		}
	}
	user.FriendList = append(user.FriendList, friendID)
	s.state.users[userID] = user
}

func samePair(request models.FriendRequest, a, b string) bool {
	return (request.From == a && request.To == b) || (request.From == b && request.To == a)
}

func newTestEngine() (*Engine, *memoryState) {
	state := newMemoryState()
	return NewEngine(memoryUsers{state}, memoryRequests{state}), state
}

func TestSendRequest(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")

	request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	if request.Status != models.StatusPending {
		t.Fatalf("expected pending status got %q", request.Status)
	}
	if request.From != ana.ID || request.To != ben.ID {
		t.Fatalf("unexpected request endpoints: %+v", request)
	}
	if len(state.friendList(ana.ID)) != 0 || len(state.friendList(ben.ID)) != 0 {
		t.Fatal("sending a request must not touch friend lists")
	}
}

func TestSendRequestValidation(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")

	cases := []struct {
		name string
		from string
		to   string
	}{
		{"emptyFrom", "", ana.ID},
		{"emptyTo", ana.ID, ""},
		{"self", ana.ID, ana.ID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.SendRequest(ctx, tc.from, tc.to); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected invalid argument got %v", err)
			}
		})
	}
}

func TestSendRequestUnknownUsers(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")

	if _, err := engine.SendRequest(ctx, ana.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown recipient got %v", err)
	}
	if _, err := engine.SendRequest(ctx, uuid.NewString(), ana.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown sender got %v", err)
	}
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")

	request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(models.StatusAccepted)); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	// The friendship check fires before the duplicate-request check.
	if _, err := engine.SendRequest(ctx, ana.ID, ben.ID); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected already friends got %v", err)
	}
	if _, err := engine.SendRequest(ctx, ben.ID, ana.ID); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected already friends for reversed pair got %v", err)
	}
}

func TestSendRequestDuplicateStatuses(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		decide   models.RequestStatus
		expected models.RequestStatus
	}{
		{"pendingBlocks", "", models.StatusPending},
		{"rejectedBlocks", models.StatusRejected, models.StatusRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, state := newTestEngine()
			ana := state.addUser("Ana", "ana@example.com")
			ben := state.addUser("Ben", "ben@example.com")

			request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
			if err != nil {
				t.Fatalf("send request: %v", err)
			}

			if tc.decide != "" {
				if _, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(tc.decide)); err != nil {
					t.Fatalf("decide request: %v", err)
				}
			}

			var duplicate *DuplicateRequestError
			if _, err := engine.SendRequest(ctx, ana.ID, ben.ID); !errors.As(err, &duplicate) {
				t.Fatalf("expected duplicate request error got %v", err)
			} else if duplicate.Status != tc.expected {
				t.Fatalf("expected duplicate status %q got %q", tc.expected, duplicate.Status)
			}

			// The unordered pair blocks the reversed direction too.
			if _, err := engine.SendRequest(ctx, ben.ID, ana.ID); !errors.As(err, &duplicate) {
				t.Fatalf("expected duplicate request error for reversed pair got %v", err)
			}
		})
	}
}

func TestSendRequestConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.SendRequest(ctx, ana.ID, ben.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			var duplicate *DuplicateRequestError
			if !errors.As(err, &duplicate) {
				t.Fatalf("unexpected error: %v", err)
			}
			duplicates++
		}
	}

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful send, got %d", succeeded)
	}
	if duplicates != attempts-1 {
		t.Fatalf("expected %d duplicate errors, got %d", attempts-1, duplicates)
	}
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")
	cid := state.addUser("Cid", "cid@example.com")

	if _, err := engine.SendRequest(ctx, ana.ID, ben.ID); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := engine.SendRequest(ctx, cid.ID, ana.ID); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Empty status defaults to pending.
	requests, err := engine.ListRequests(ctx, ben.ID, "")
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(requests) != 1 || requests[0].From != ana.ID || requests[0].To != ben.ID {
		t.Fatalf("unexpected requests for ben: %+v", requests)
	}

	accepted, err := engine.ListRequests(ctx, ben.ID, string(models.StatusAccepted))
	if err != nil {
		t.Fatalf("list accepted: %v", err)
	}
	if len(accepted) != 0 {
		t.Fatalf("expected no accepted requests, got %+v", accepted)
	}

	if _, err := engine.ListRequests(ctx, ben.ID, "bogus"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown status got %v", err)
	}
	if _, err := engine.ListRequests(ctx, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty recipient got %v", err)
	}
}

func TestDecideRequestAccept(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")

	request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	updated, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(models.StatusAccepted))
	if err != nil {
		t.Fatalf("decide request: %v", err)
	}
	if updated.Status != models.StatusAccepted {
		t.Fatalf("expected accepted got %q", updated.Status)
	}

	anaFriends := state.friendList(ana.ID)
	benFriends := state.friendList(ben.ID)
	if len(anaFriends) != 1 || anaFriends[0] != ben.ID {
		t.Fatalf("expected ana's friend list to contain ben, got %v", anaFriends)
	}
	if len(benFriends) != 1 || benFriends[0] != ana.ID {
		t.Fatalf("expected ben's friend list to contain ana, got %v", benFriends)
	}

	// A terminal request cannot be decided again, and the lists stay put.
	if _, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(models.StatusAccepted)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state on re-decide got %v", err)
	}
	if len(state.friendList(ana.ID)) != 1 || len(state.friendList(ben.ID)) != 1 {
		t.Fatal("re-deciding must not mutate friend lists")
	}
}

func TestDecideRequestReject(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")

	request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	updated, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(models.StatusRejected))
	if err != nil {
		t.Fatalf("decide request: %v", err)
	}
	if updated.Status != models.StatusRejected {
		t.Fatalf("expected rejected got %q", updated.Status)
	}

	if len(state.friendList(ana.ID)) != 0 || len(state.friendList(ben.ID)) != 0 {
		t.Fatal("rejection must not mutate friend lists")
	}

	if _, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(models.StatusAccepted)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state after rejection got %v", err)
	}
}

func TestDecideRequestFailures(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")
	cid := state.addUser("Cid", "cid@example.com")

	request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	if _, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(models.StatusPending)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for pending got %v", err)
	}
	if _, err := engine.DecideRequest(ctx, ben.ID, request.ID, "bogus"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown status got %v", err)
	}
	if _, err := engine.DecideRequest(ctx, ben.ID, uuid.NewString(), string(models.StatusAccepted)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown request got %v", err)
	}
	if _, err := engine.DecideRequest(ctx, ana.ID, request.ID, string(models.StatusAccepted)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for the sender got %v", err)
	}
	if _, err := engine.DecideRequest(ctx, cid.ID, request.ID, string(models.StatusAccepted)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for a third party got %v", err)
	}
}

func TestDecideRequestConcurrentDecisions(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")

	request, err := engine.SendRequest(ctx, ana.ID, ben.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	statuses := []models.RequestStatus{
		models.StatusAccepted, models.StatusRejected,
		models.StatusAccepted, models.StatusRejected,
	}
	results := make(chan error, len(statuses))
	var wg sync.WaitGroup
	for _, status := range statuses {
		wg.Add(1)
		go func(status models.RequestStatus) {
			defer wg.Done()
			_, err := engine.DecideRequest(ctx, ben.ID, request.ID, string(status))
			results <- err
		}(status)
	}
	wg.Wait()
	close(results)

	var winners int
	for err := range results {
		if err == nil {
			winners++
			continue
		}
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("losing decision returned unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning decision, got %d", winners)
	}

	// Whatever won, the lists are either symmetric or both untouched.
	anaFriends := state.friendList(ana.ID)
	benFriends := state.friendList(ben.ID)
	if len(anaFriends) != len(benFriends) {
		t.Fatalf("friend lists diverged: %v vs %v", anaFriends, benFriends)
	}
}

func TestListFriends(t *testing.T) {
	ctx := context.Background()
	engine, state := newTestEngine()
	ana := state.addUser("Ana", "ana@example.com")
	ben := state.addUser("Ben", "ben@example.com")
	cid := state.addUser("Cid", "cid@example.com")

	for _, friend := range []models.User{ben, cid} {
		request, err := engine.SendRequest(ctx, ana.ID, friend.ID)
		if err != nil {
			t.Fatalf("send request: %v", err)
		}
		if _, err := engine.DecideRequest(ctx, friend.ID, request.ID, string(models.StatusAccepted)); err != nil {
			t.Fatalf("accept request: %v", err)
		}
	}

	friends, err := engine.ListFriends(ctx, ana.ID)
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(friends) != 2 || friends[0].ID != ben.ID || friends[1].ID != cid.ID {
		t.Fatalf("unexpected friend list: %+v", friends)
	}

	if _, err := engine.ListFriends(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown user got %v", err)
	}
	if _, err := engine.ListFriends(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty id got %v", err)
	}
}
