package repository

import (
	"context"
	"errors"

	"github.com/crmgate/crmgate/internal/domain/entity"
)

// ErrNotFound is returned by repositories when a queried row does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
