package config

import (
	"errors"
	"strings"
)

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAdminName() string
	GetAdminEmail() string
	GetAdminPassword() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Storage
}

func New() Config {
	return mainConfig{}
}

// Validate checks the startup preconditions. The server must not start serving
// requests when it returns an error.
func Validate(c Config) error {
	if strings.TrimSpace(c.GetJWTSecret()) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.GetSessionStore() != SessionStoreMemory && strings.TrimSpace(c.GetMongoURI()) == "" {
		return errors.New("MONGO_URI must be set")
	}
	if c.GetSessionStore() == SessionStoreRedis && strings.TrimSpace(c.GetRedisAddr()) == "" {
		return errors.New("REDIS_ADDR must be set when SESSION_STORE=redis")
	}
	return nil
}
