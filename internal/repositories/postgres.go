package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/friendcircle/backend/internal/db"
	"github.com/friendcircle/backend/internal/logging"
	"github.com/friendcircle/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. The friend list starts empty.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, first_name, last_name, email, password_hash, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, user.ID, user.FirstName, user.LastName, user.Email, user.Password, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, first_name, last_name, email, password_hash, is_active, friend_list, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, first_name, last_name, email, password_hash, is_active, friend_list, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// ListByActive returns users filtered by their activation flag.
func (r *PostgresUserRepository) ListByActive(ctx context.Context, active bool) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, first_name, last_name, email, password_hash, is_active, friend_list, created_at, updated_at
        FROM users
        WHERE is_active = $1
        ORDER BY created_at
    `, active)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// SetActive flips a user's activation flag.
func (r *PostgresUserRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET is_active = $2, updated_at = $3
        WHERE id = $1
    `, id, active, at)
	if err != nil {
		return fmt.Errorf("update user activation: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFriends resolves the user records referenced by id's friend list, in
// list order.
func (r *PostgresUserRepository) ListFriends(ctx context.Context, id string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT f.id, f.first_name, f.last_name, f.email, f.password_hash, f.is_active, f.friend_list, f.created_at, f.updated_at
        FROM users u
        CROSS JOIN LATERAL unnest(u.friend_list) WITH ORDINALITY AS fl(friend_id, position)
        JOIN users f ON f.id = fl.friend_id
        WHERE u.id = $1
        ORDER BY fl.position
    `, id)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Password,
		&user.IsActive,
		&user.FriendList,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// PostgresFriendRepository provides PostgreSQL-backed persistence for friend
// requests and the friendships they produce.
type PostgresFriendRepository struct {
	pool db.Pool
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool}
}

// Create persists a new friend request. A unique index on the unordered
// {from, to} pair turns duplicate submissions into ErrConflict.
func (r *PostgresFriendRepository) Create(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_requests (id, from_id, to_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, request.ID, request.From, request.To, request.Status, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert friend request: %w", err)
	}

	return nil
}

// FindByID fetches a friend request by its identifier.
func (r *PostgresFriendRepository) FindByID(ctx context.Context, id string) (models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, from_id, to_id, status, created_at, updated_at
        FROM friend_requests
        WHERE id = $1
    `, id)

	request, err := scanFriendRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendRequest{}, ErrNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("select friend request: %w", err)
	}

	return request, nil
}

// FindByPair fetches the request between two users, treating {a, b} and
// {b, a} as the same pair.
func (r *PostgresFriendRepository) FindByPair(ctx context.Context, a, b string) (models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, from_id, to_id, status, created_at, updated_at
        FROM friend_requests
        WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
    `, a, b)

	request, err := scanFriendRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendRequest{}, ErrNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("select friend request by pair: %w", err)
	}

	return request, nil
}

// ListForRecipient returns requests addressed to the given user with the
// given status, newest first.
func (r *PostgresFriendRepository) ListForRecipient(ctx context.Context, to string, status models.RequestStatus) ([]models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, from_id, to_id, status, created_at, updated_at
        FROM friend_requests
        WHERE to_id = $1 AND status = $2
        ORDER BY created_at DESC
    `, to, status)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		request, err := scanFriendRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}

	return requests, nil
}

// Resolve transitions a pending request to the given terminal status. The
// compare-and-set on status and, for acceptance, both symmetric friend-list
// appends run in one transaction, so concurrent decisions on the same
// request resolve to exactly one winner.
func (r *PostgresFriendRepository) Resolve(ctx context.Context, requestID string, status models.RequestStatus, at time.Time) (models.FriendRequest, error) {
	ctx, span := logging.StartSpan(ctx, "friend_requests.resolve")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
        UPDATE friend_requests
        SET status = $2, updated_at = $3
        WHERE id = $1 AND status = 'pending'
        RETURNING id, from_id, to_id, status, created_at, updated_at
    `, requestID, status, at)

	request, err := scanFriendRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing row and already-resolved row are different failures.
			var current string
			lookupErr := tx.QueryRow(ctx, `
                SELECT status FROM friend_requests WHERE id = $1
            `, requestID).Scan(&current)
			if errors.Is(lookupErr, pgx.ErrNoRows) {
				return models.FriendRequest{}, ErrNotFound
			}
			if lookupErr != nil {
				return models.FriendRequest{}, fmt.Errorf("select friend request status: %w", lookupErr)
			}
			return models.FriendRequest{}, ErrConflict
		}
		return models.FriendRequest{}, fmt.Errorf("update friend request status: %w", err)
	}

	if status == models.StatusAccepted {
		for _, link := range [][2]string{{request.To, request.From}, {request.From, request.To}} {
			if _, err := tx.Exec(ctx, `
                UPDATE users
                SET friend_list = array_append(friend_list, $2::uuid), updated_at = $3
                WHERE id = $1 AND NOT ($2::uuid = ANY(friend_list))
            `, link[0], link[1], at); err != nil {
				return models.FriendRequest{}, fmt.Errorf("append friend %s to %s: %w", link[1], link[0], err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.FriendRequest{}, fmt.Errorf("commit friend request resolution: %w", err)
	}

	return request, nil
}

func scanFriendRequest(row pgx.Row) (models.FriendRequest, error) {
	var request models.FriendRequest
	err := row.Scan(
		&request.ID,
		&request.From,
		&request.To,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	return request, err
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendRepository = (*PostgresFriendRepository)(nil)
