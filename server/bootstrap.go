package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/jrsteele09/field-portal/internal/config"
	"github.com/jrsteele09/field-portal/users"
	"github.com/rs/zerolog/log"
)

// BootstrapAdmin makes sure the configured admin account exists. Without
// ADMIN_EMAIL it does nothing. When ADMIN_PASSWORD is empty a password is
// generated and logged once.
// Returns the generated password on first creation (empty string otherwise)
func BootstrapAdmin(ctx context.Context, cfg config.EnvConfig, userService *users.Service) (generatedPassword string, err error) {
	email := cfg.GetAdminEmail()
	if email == "" {
		log.Debug().Msg("Bootstrap: ADMIN_EMAIL not set, skipping admin bootstrap")
		return "", nil
	}

	password := cfg.GetAdminPassword()
	if password == "" {
		// Generate a secure random password
		passwordBytes := make([]byte, 18)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("[BootstrapAdmin] failed to generate password: %w", err)
		}
		// suffix guarantees the strength rules
		generatedPassword = base64.RawURLEncoding.EncodeToString(passwordBytes) + "Aa1"
		password = generatedPassword
	}

	created, err := userService.EnsureAdmin(ctx, cfg.GetAdminName(), email, password)
	if err != nil {
		return "", fmt.Errorf("[BootstrapAdmin] %w", err)
	}
	if !created {
		log.Info().Str("email", email).Msg("Bootstrap: admin already exists")
		return "", nil
	}

	log.Info().Str("email", email).Msg("Bootstrap: created admin user")
	if generatedPassword != "" {
		log.Warn().Str("email", email).Str("password", generatedPassword).Msg("Bootstrap: generated admin password, save it now, it will not be displayed again")
	}
	return generatedPassword, nil
}
