package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/field-portal/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 100

// Service manages admin users on top of a UserRepo.
type Service struct {
	repo    UserRepo
	nowTime func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo UserRepo, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[users.NewService] user repo is required")
	}
	s := &Service{repo: repo, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Create validates and stores a new admin user.
func (s *Service) Create(ctx context.Context, name, email, password string) (*User, error) {
	email = NormaliseEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "a valid email is required")
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Create] hash password")
	}

	user := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		CreatedAt:    s.nowTime().UTC(),
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[Create]")
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]*User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, offset, limit)
}

// ResetPassword replaces the password of user id.
func (s *Service) ResetPassword(ctx context.Context, id, password string) error {
	if err := ValidatePasswordStrength(password); err != nil {
		return errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}
	hash, err := HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "[ResetPassword] hash password")
	}
	return s.repo.UpdatePasswordHash(ctx, id, hash)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Authenticate checks an email and password pair. Unknown emails, blocked users and
// wrong passwords all fail with apperrors.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, NormaliseEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate]")
	}
	if user.Blocked || !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.repo.SetLastLogin(ctx, user.ID, s.nowTime().UTC()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin unless a user with that email exists.
// It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, NormaliseEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, errors.Wrap(err, "[EnsureAdmin]")
	}
	if _, err := s.Create(ctx, name, email, password); err != nil {
		return false, errors.Wrap(err, "[EnsureAdmin]")
	}
	return true, nil
}
