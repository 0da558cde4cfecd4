package auth

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/field-portal/internal/errors"
	"github.com/jrsteele09/field-portal/sessions"
	"github.com/jrsteele09/field-portal/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultQRTokenValidity = 24 * time.Hour

// QRLoginResponse is returned to the client after a successful QR login.
type QRLoginResponse struct {
	AccessToken string `json:"accessToken"`
	VendorID    string `json:"vendorId"`
	PlantID     string `json:"plantId"`
}

// SessionStatus classifies an access token against the session store.
type SessionStatus int

const (
	SessionInvalid    SessionStatus = iota // unknown or expired
	SessionActive                          // valid record
	SessionSuperseded                      // replaced by a newer login
)

func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionSuperseded:
		return "superseded"
	default:
		return "invalid"
	}
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Role      string
	VendorID  string
	PlantID   string
	Subject   string
	ExpiresAt time.Time
}

func (p *Principal) IsAdmin() bool {
	return p.Role == token.RoleAdmin
}

// Service orchestrates QR login, session validation and token issuance.
type Service struct {
	codec               *token.Codec
	sessions            sessions.Repo
	singleActiveSession bool
	qrTokenValidity     time.Duration
	nowTime             func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithSingleActiveSession makes every QR login supersede the other live sessions
// of the same vendor and plant.
func WithSingleActiveSession(enabled bool) ServiceOption {
	return func(s *Service) {
		s.singleActiveSession = enabled
	}
}

// WithQRTokenValidity sets the default validity of generated QR credentials.
func WithQRTokenValidity(validity time.Duration) ServiceOption {
	return func(s *Service) {
		if validity > 0 {
			s.qrTokenValidity = validity
		}
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(codec *token.Codec, sessionRepo sessions.Repo, options ...ServiceOption) (*Service, error) {
	if codec == nil {
		return nil, errors.New("[NewService] codec is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("[NewService] sessions repo is required")
	}

	s := &Service{
		codec:           codec,
		sessions:        sessionRepo,
		qrTokenValidity: defaultQRTokenValidity,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// QRLogin exchanges a scanned QR credential for a fresh session token and
// persists a session record for it. Nothing is written when the credential is
// rejected.
func (s *Service) QRLogin(ctx context.Context, rawToken string) (*QRLoginResponse, error) {
	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		return nil, errors.Wrap(ErrAuthenticationFailed, err.Error())
	}

	vendorID := strings.TrimSpace(claims.VendorID)
	plantID := strings.TrimSpace(claims.PlantID)
	if vendorID == "" || plantID == "" {
		return nil, errors.Wrap(ErrAuthenticationFailed, "credential missing vendorId or plantId")
	}

	accessToken, err := s.codec.IssueSession(token.Payload{
		VendorID: vendorID,
		PlantID:  plantID,
		Role:     token.RoleTechnician,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[QRLogin] issue session token")
	}

	if _, err := s.sessions.Create(ctx, vendorID, plantID, accessToken); err != nil {
		return nil, errors.Wrap(err, "[QRLogin] create session")
	}

	if s.singleActiveSession {
		// the new session stands even when older ones could not be superseded
		n, err := s.sessions.SupersedeOthers(ctx, vendorID, plantID, accessToken)
		if err != nil {
			log.Err(err).Str("vendor_id", vendorID).Str("plant_id", plantID).Msg("QR login failed to supersede older sessions")
		} else if n > 0 {
			log.Info().Str("vendor_id", vendorID).Str("plant_id", plantID).Int("superseded", n).Msg("QR login superseded older sessions")
		}
	}

	return &QRLoginResponse{
		AccessToken: accessToken,
		VendorID:    vendorID,
		PlantID:     plantID,
	}, nil
}

// ValidateSession reports whether a live session record exists for accessToken.
// Unknown, expired and superseded tokens all yield false; the error is only set
// when the store could not be queried.
func (s *Service) ValidateSession(ctx context.Context, accessToken string) (bool, error) {
	if accessToken == "" {
		return false, nil
	}
	_, err := s.sessions.FindValid(ctx, accessToken)
	if errors.Is(err, sessions.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "[ValidateSession]")
	}
	return true, nil
}

// SessionStatus distinguishes superseded sessions from unknown or expired ones.
func (s *Service) SessionStatus(ctx context.Context, accessToken string) (SessionStatus, *sessions.Record, error) {
	if accessToken == "" {
		return SessionInvalid, nil, nil
	}
	record, err := s.sessions.Get(ctx, accessToken)
	if errors.Is(err, sessions.ErrSessionNotFound) {
		return SessionInvalid, nil, nil
	}
	if err != nil {
		return SessionInvalid, nil, errors.Wrap(err, "[SessionStatus]")
	}

	switch {
	case record.IsExpired(s.nowTime()):
		return SessionInvalid, record, nil
	case record.IsSuperseded():
		return SessionSuperseded, record, nil
	default:
		return SessionActive, record, nil
	}
}

// Authenticate resolves a bearer token into a Principal. Admin tokens are
// stateless; technician tokens also need an active session record.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Principal, error) {
	claims, err := s.codec.Verify(bearer)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}

	if claims.IsAdmin() {
		if claims.Subject == "" {
			return nil, errors.Wrap(ErrUnauthorized, "admin token missing subject")
		}
		return &Principal{
			Role:      token.RoleAdmin,
			Subject:   claims.Subject,
			ExpiresAt: claims.Expiry(),
		}, nil
	}

	status, record, err := s.SessionStatus(ctx, bearer)
	if err != nil {
		return nil, err
	}
	switch status {
	case SessionSuperseded:
		return nil, ErrSessionInvalidated
	case SessionInvalid:
		return nil, errors.Wrap(ErrUnauthorized, "no active session")
	}

	return &Principal{
		Role:      token.RoleTechnician,
		VendorID:  record.VendorID,
		PlantID:   record.PlantID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// IssueAdminToken signs a session-length token for an authenticated admin user.
func (s *Service) IssueAdminToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("[IssueAdminToken] user id is required")
	}
	signed, expiresAt, err := s.codec.Issue(token.Payload{Subject: userID, Role: token.RoleAdmin}, token.SessionTokenExpiry)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[IssueAdminToken]")
	}
	return signed, expiresAt, nil
}

// GenerateQRCredential mints the credential encoded into a vendor QR code.
// A zero validFor uses the configured default.
func (s *Service) GenerateQRCredential(vendorID, plantID string, validFor time.Duration) (string, time.Time, error) {
	vendorID = strings.TrimSpace(vendorID)
	plantID = strings.TrimSpace(plantID)
	if vendorID == "" || plantID == "" {
		return "", time.Time{}, errors.Wrap(apperrors.ErrInvalidRequest, "vendorId and plantId are required")
	}
	if validFor <= 0 {
		validFor = s.qrTokenValidity
	}

	signed, expiresAt, err := s.codec.Issue(token.Payload{
		VendorID: vendorID,
		PlantID:  plantID,
		Role:     token.RoleTechnician,
	}, validFor)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[GenerateQRCredential]")
	}
	return signed, expiresAt, nil
}
