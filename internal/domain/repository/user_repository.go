package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the interface for user-related database operations.
// Save inserts when u.ID is zero (assigning it) and inserts-or-replaces by id otherwise.
// FindByID and DeleteByID return ErrUserNotFound when no row matches.
type UserRepository interface {
	Save(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	DeleteByID(ctx context.Context, id int64) error
	FindByBirthDateBetween(ctx context.Context, from, to civil.Date) ([]entity.User, error)
}
