package repositories

import (
	"context"
	"time"

	"github.com/friendcircle/backend/internal/models"
)

// UserRepository defines the data access contract for users.
//
// Friend lists are read through this contract but written only by the friend
// repository's accept transaction.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	ListByActive(ctx context.Context, active bool) ([]models.User, error)
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	ListFriends(ctx context.Context, id string) ([]models.User, error)
}
