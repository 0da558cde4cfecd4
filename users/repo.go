package users

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/field-portal/internal/errors"
)

var (
	ErrUserNotFound   = apperrors.Wrapf(apperrors.ErrNotFound, "user")
	ErrDuplicateEmail = apperrors.Wrapf(apperrors.ErrDuplicate, "email already registered")
)

// UserRepo stores admin users. Emails are stored normalised.
type UserRepo interface {
	// Insert stores a new user, failing with ErrDuplicateEmail when the email is taken.
	Insert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// List returns users ordered by creation time.
	List(ctx context.Context, offset, limit int) ([]*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
