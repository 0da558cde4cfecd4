package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SessionTokenExpiry is the fixed validity window of a session token.
const SessionTokenExpiry = 8 * time.Hour

// Roles carried in the role claim.
const (
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

var (
	ErrMissingSecret     = errors.New("signing secret is required")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
)

// Payload is the identity a token is issued for. Technician credentials carry a
// vendor and plant, admin tokens carry a subject.
type Payload struct {
	VendorID string
	PlantID  string
	Subject  string
	Role     string
}

// Claims is the verified content of a token.
type Claims struct {
	VendorID string `json:"vendorId,omitempty"`
	PlantID  string `json:"plantId,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IsAdmin reports whether the token was issued for an admin user.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Codec issues and verifies signed credentials and session tokens.
type Codec struct {
	signer  Signer
	nowFunc func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the clock used for iat/exp and for expiry checks (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// NewCodec creates a codec signing with HS256 and the given secret. An empty
// secret is an error; callers treat it as a startup failure.
func NewCodec(secret string, options ...CodecOption) (*Codec, error) {
	signer, err := NewHMACSigner(secret)
	if err != nil {
		return nil, errors.Wrap(err, "[NewCodec]")
	}

	c := &Codec{
		signer:  signer,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Issue signs the payload with a validity of validFor and returns the token
// together with its expiry.
func (c *Codec) Issue(payload Payload, validFor time.Duration) (string, time.Time, error) {
	if validFor <= 0 {
		return "", time.Time{}, errors.Errorf("[Issue] invalid validity %s", validFor)
	}

	now := c.nowFunc()
	expiresAt := jwt.NewNumericDate(now.Add(validFor))
	claims := &Claims{
		VendorID: payload.VendorID,
		PlantID:  payload.PlantID,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
			ID:        uuid.New().String(), // distinct tokens for identical payloads
		},
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Issue]")
	}
	return signed, expiresAt.Time, nil
}

// IssueSession signs a session token valid for SessionTokenExpiry.
func (c *Codec) IssueSession(payload Payload) (string, error) {
	signed, _, err := c.Issue(payload, SessionTokenExpiry)
	return signed, err
}

// Verify checks signature, algorithm and expiry. It fails with ErrInvalidCredential
// for malformed or wrongly signed tokens and ErrExpiredCredential once exp is
// reached.
func (c *Codec) Verify(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrap(ErrInvalidCredential, "empty token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(rawToken, claims, c.signer.GetVerificationKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(ErrExpiredCredential, err.Error())
		}
		return nil, errors.Wrap(ErrInvalidCredential, err.Error())
	}
	if !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
