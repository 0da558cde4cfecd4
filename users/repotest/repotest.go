// Package repotest holds the behaviour every users.UserRepo must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/field-portal/users"
	"github.com/stretchr/testify/require"
)

func newUser(email string, createdAt time.Time) *users.User {
	return &users.User{
		ID:           uuid.New().String(),
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		Role:         users.RoleAdmin,
		CreatedAt:    createdAt,
	}
}

// Run exercises a fresh repo returned by newRepo for every subtest.
func Run(t *testing.T, newRepo func(t *testing.T) users.UserRepo) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("insert and get", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("a@example.com", base)
		require.NoError(t, repo.Insert(ctx, u))

		byEmail, err := repo.GetByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)

		byID, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)
		require.Equal(t, "hash", byID.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Insert(ctx, newUser("a@example.com", base)))
		err := repo.Insert(ctx, newUser("a@example.com", base))
		require.ErrorIs(t, err, users.ErrDuplicateEmail)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, users.ErrUserNotFound)
		_, err = repo.GetByEmail(ctx, "missing@example.com")
		require.ErrorIs(t, err, users.ErrUserNotFound)
		require.ErrorIs(t, repo.Delete(ctx, "missing"), users.ErrUserNotFound)
		require.ErrorIs(t, repo.UpdatePasswordHash(ctx, "missing", "x"), users.ErrUserNotFound)
	})

	t.Run("list in creation order with paging", func(t *testing.T) {
		repo := newRepo(t)
		for i, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
			require.NoError(t, repo.Insert(ctx, newUser(email, base.Add(time.Duration(i)*time.Minute))))
		}

		all, err := repo.List(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "c@example.com", all[0].Email)
		require.Equal(t, "b@example.com", all[2].Email)

		page, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, "a@example.com", page[0].Email)

		empty, err := repo.List(ctx, 5, 10)
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("update and delete", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("a@example.com", base)
		require.NoError(t, repo.Insert(ctx, u))

		require.NoError(t, repo.UpdatePasswordHash(ctx, u.ID, "new-hash"))
		require.NoError(t, repo.SetLastLogin(ctx, u.ID, base.Add(time.Hour)))
		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)
		require.True(t, got.LastLogin.Equal(base.Add(time.Hour)))

		require.NoError(t, repo.Delete(ctx, u.ID))
		_, err = repo.GetByEmail(ctx, "a@example.com")
		require.ErrorIs(t, err, users.ErrUserNotFound)
		require.NoError(t, repo.Insert(ctx, newUser("a@example.com", base)), "email is free again")
	})
}
