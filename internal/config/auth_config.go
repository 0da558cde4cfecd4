package config

import "time"

type AuthConfig interface {
	GetJWTSecret() string
	GetQRTokenValidity() time.Duration
	GetSingleActiveSession() bool
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

func (Auth) GetQRTokenValidity() time.Duration {
	return time.Duration(GetEnvInt("QR_TOKEN_VALIDITY_HOURS", 24)) * time.Hour
}

// GetSingleActiveSession makes a new QR login supersede every other live session
// of the same vendor and plant.
func (Auth) GetSingleActiveSession() bool {
	return GetEnvBool("SINGLE_ACTIVE_SESSION", false)
}
