package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/user-registration-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the given id.
	ErrNotFound = errors.New("user record not found")
	// ErrDuplicate is returned when a write violates the email or username uniqueness constraint.
	ErrDuplicate = errors.New("user record violates unique constraint")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// Create inserts u and fills in its generated ID and timestamps.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	// FindAll returns every user, deleted ones included, ordered by ID.
	FindAll(ctx context.Context) ([]*entity.User, error)
	// SaveAll upserts users by ID and refreshes LastUpdatedAt from the store clock.
	SaveAll(ctx context.Context, users []*entity.User) error
	// SoftDeleteByIDs only flips the deleted flag and reports how many rows matched.
	// Unknown ids are ignored.
	SoftDeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	// WithinTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx UserRepository) error) error
}
