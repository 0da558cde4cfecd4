package sessionstore_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/field-portal/sessions/redisstore"
	fakesessionrepo "github.com/jrsteele09/field-portal/sessions/repofakes"
	"github.com/jrsteele09/field-portal/sessions/sessionstore"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := sessionstore.New(ctx, sessionstore.Config{Driver: sessionstore.DriverMemory}, sessionstore.Dependencies{})
		require.NoError(t, err)
		require.IsType(t, &fakesessionrepo.FakeSessionRepo{}, repo)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		repo, err := sessionstore.New(ctx, sessionstore.Config{
			Driver: sessionstore.DriverRedis,
			Redis:  redisstore.Config{Addr: mr.Addr()},
		}, sessionstore.Dependencies{})
		require.NoError(t, err)
		require.IsType(t, &redisstore.RedisSessionRepo{}, repo)
		require.NoError(t, repo.Close(ctx))
	})

	t.Run("mongo without database", func(t *testing.T) {
		_, err := sessionstore.New(ctx, sessionstore.Config{Driver: sessionstore.DriverMongo}, sessionstore.Dependencies{})
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := sessionstore.New(ctx, sessionstore.Config{Driver: "sqlite"}, sessionstore.Dependencies{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported")
	})
}
