// Package repotest holds the behaviour every sessions.Repo driver must share.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/field-portal/sessions"
	"github.com/stretchr/testify/require"
)

// Clock is a settable time source shared by a test and the repo under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewRepoFunc builds an empty repo reading time from clock.
type NewRepoFunc func(t *testing.T, clock *Clock) sessions.Repo

// Run exercises the sessions.Repo contract against newRepo.
func Run(t *testing.T, newRepo NewRepoFunc) {
	ctx := context.Background()
	// far future so a real TTL monitor never collects records mid-test
	start := time.Date(2099, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("create and find valid", func(t *testing.T) {
		clock := NewClock(start)
		repo := newRepo(t, clock)

		created, err := repo.Create(ctx, "ACME", "Plant1", "token-1")
		require.NoError(t, err)
		require.Equal(t, "ACME", created.VendorID)
		require.True(t, created.ExpiresAt.Equal(start.Add(sessions.DefaultExpiry)))

		found, err := repo.FindValid(ctx, "token-1")
		require.NoError(t, err)
		require.Equal(t, "Plant1", found.PlantID)
		require.Equal(t, "token-1", found.AccessToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := newRepo(t, NewClock(start))

		_, err := repo.FindValid(ctx, "missing")
		require.ErrorIs(t, err, sessions.ErrSessionNotFound)
		_, err = repo.Get(ctx, "missing")
		require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	})

	t.Run("duplicate token", func(t *testing.T) {
		repo := newRepo(t, NewClock(start))

		_, err := repo.Create(ctx, "ACME", "Plant1", "token-1")
		require.NoError(t, err)
		_, err = repo.Create(ctx, "Other", "Plant9", "token-1")
		require.ErrorIs(t, err, sessions.ErrDuplicateToken)

		found, err := repo.FindValid(ctx, "token-1")
		require.NoError(t, err)
		require.Equal(t, "ACME", found.VendorID, "duplicate must not overwrite")
	})

	t.Run("logical expiry is exclusive", func(t *testing.T) {
		clock := NewClock(start)
		repo := newRepo(t, clock)

		_, err := repo.Create(ctx, "ACME", "Plant1", "token-1")
		require.NoError(t, err)

		clock.Advance(sessions.DefaultExpiry - time.Second)
		_, err = repo.FindValid(ctx, "token-1")
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = repo.FindValid(ctx, "token-1")
		require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	})

	t.Run("independent records per login", func(t *testing.T) {
		repo := newRepo(t, NewClock(start))

		_, err := repo.Create(ctx, "ACME", "Plant1", "token-1")
		require.NoError(t, err)
		_, err = repo.Create(ctx, "ACME", "Plant1", "token-2")
		require.NoError(t, err)

		_, err = repo.FindValid(ctx, "token-1")
		require.NoError(t, err)
		_, err = repo.FindValid(ctx, "token-2")
		require.NoError(t, err)
	})

	t.Run("supersede others", func(t *testing.T) {
		clock := NewClock(start)
		repo := newRepo(t, clock)

		for _, tok := range []string{"old-1", "old-2", "new"} {
			_, err := repo.Create(ctx, "ACME", "Plant1", tok)
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, "ACME", "Plant2", "other-plant")
		require.NoError(t, err)

		clock.Advance(time.Minute)
		n, err := repo.SupersedeOthers(ctx, "ACME", "Plant1", "new")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		for _, tok := range []string{"old-1", "old-2"} {
			_, err := repo.FindValid(ctx, tok)
			require.ErrorIs(t, err, sessions.ErrSessionNotFound)

			record, err := repo.Get(ctx, tok)
			require.NoError(t, err)
			require.True(t, record.IsSuperseded())
		}

		_, err = repo.FindValid(ctx, "new")
		require.NoError(t, err)
		_, err = repo.FindValid(ctx, "other-plant")
		require.NoError(t, err)

		n, err = repo.SupersedeOthers(ctx, "ACME", "Plant1", "new")
		require.NoError(t, err)
		require.Zero(t, n, "already superseded records are not counted again")
	})
}
