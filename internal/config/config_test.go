package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/field-portal/internal/config"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("SESSION_STORE", config.SessionStoreMemory)
		err := config.Validate(config.New())
		require.Error(t, err)
		require.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("missing mongo uri", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("SESSION_STORE", "")
		t.Setenv("MONGO_URI", "")
		err := config.Validate(config.New())
		require.Error(t, err)
		require.Contains(t, err.Error(), "MONGO_URI")
	})

	t.Run("redis without address", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("SESSION_STORE", config.SessionStoreRedis)
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("REDIS_ADDR", "")
		require.Error(t, config.Validate(config.New()))
	})

	t.Run("memory store needs only a secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("SESSION_STORE", config.SessionStoreMemory)
		t.Setenv("MONGO_URI", "")
		require.NoError(t, config.Validate(config.New()))
	})
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QR_TOKEN_VALIDITY_HOURS", "")
	t.Setenv("SINGLE_ACTIVE_SESSION", "")

	c := config.New()
	require.Equal(t, ":4000", c.GetPort())
	require.Equal(t, 24*time.Hour, c.GetQRTokenValidity())
	require.False(t, c.GetSingleActiveSession())

	t.Setenv("PORT", ":9000")
	t.Setenv("SINGLE_ACTIVE_SESSION", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	require.Equal(t, ":9000", c.GetPort())
	require.True(t, c.GetSingleActiveSession())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example"))
}
