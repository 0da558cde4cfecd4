package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/field-portal/auth"
	"github.com/jrsteele09/field-portal/sessions"
	fakesessionrepo "github.com/jrsteele09/field-portal/sessions/repofakes"
	"github.com/jrsteele09/field-portal/sessions/repotest"
	"github.com/jrsteele09/field-portal/token"
	"github.com/stretchr/testify/require"
)

const (
	secretStr    = "1234"
	testVendorID = "ACME"
	testPlantID  = "Plant1"
)

// testFixture holds all test dependencies
type testFixture struct {
	clock       *repotest.Clock
	codec       *token.Codec
	sessionRepo *fakesessionrepo.FakeSessionRepo
	service     *auth.Service
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T, options ...auth.ServiceOption) *testFixture {
	t.Helper()

	clock := repotest.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	codec, err := token.NewCodec(secretStr, token.WithNowFunc(clock.Now))
	require.NoError(t, err)

	sr := fakesessionrepo.NewFakeSessionRepo(fakesessionrepo.WithNowFunc(clock.Now))

	options = append([]auth.ServiceOption{auth.WithNowTime(clock.Now)}, options...)
	service, err := auth.NewService(codec, sr, options...)
	require.NoError(t, err)

	return &testFixture{
		clock:       clock,
		codec:       codec,
		sessionRepo: sr,
		service:     service,
	}
}

// qrCredential issues a QR credential valid for a day
func (f *testFixture) qrCredential(t *testing.T, vendorID, plantID string) string {
	t.Helper()
	raw, _, err := f.codec.Issue(token.Payload{VendorID: vendorID, PlantID: plantID}, 24*time.Hour)
	require.NoError(t, err)
	return raw
}

func TestNewService_RequiresDependencies(t *testing.T) {
	codec, err := token.NewCodec(secretStr)
	require.NoError(t, err)

	_, err = auth.NewService(nil, fakesessionrepo.NewFakeSessionRepo())
	require.Error(t, err)
	_, err = auth.NewService(codec, nil)
	require.Error(t, err)
}

func TestQRLogin_Success(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	raw := f.qrCredential(t, testVendorID, testPlantID)
	resp, err := f.service.QRLogin(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, testVendorID, resp.VendorID)
	require.Equal(t, testPlantID, resp.PlantID)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, raw, resp.AccessToken)

	record, err := f.sessionRepo.FindValid(ctx, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(sessions.DefaultExpiry), record.ExpiresAt)

	claims, err := f.codec.Verify(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, token.RoleTechnician, claims.Role)
	require.True(t, claims.Expiry().Equal(f.clock.Now().Add(token.SessionTokenExpiry)))
}

func TestQRLogin_Rejected(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	other, err := token.NewCodec("not-the-secret")
	require.NoError(t, err)
	foreign, _, err := other.Issue(token.Payload{VendorID: testVendorID, PlantID: testPlantID}, time.Hour)
	require.NoError(t, err)

	expired, _, err := f.codec.Issue(token.Payload{VendorID: testVendorID, PlantID: testPlantID}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func() string
	}{
		{name: "malformed", token: func() string { return "ACME:Plant1:Tech001" }},
		{name: "empty", token: func() string { return "" }},
		{name: "wrong signature", token: func() string { return foreign }},
		{name: "expired", token: func() string {
			f.clock.Advance(2 * time.Minute)
			return expired
		}},
		{name: "missing vendor", token: func() string { return f.qrCredential(t, "", testPlantID) }},
		{name: "missing plant", token: func() string { return f.qrCredential(t, testVendorID, "  ") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := f.service.QRLogin(ctx, tc.token())
			require.Nil(t, resp)
			require.True(t, errors.Is(err, auth.ErrAuthenticationFailed))
			require.Zero(t, f.sessionRepo.Len(), "failed logins must not create sessions")
		})
	}
}

func TestQRLogin_StoreFailureIsNotAuthenticationFailure(t *testing.T) {
	f := setupTestFixture(t)
	service, err := auth.NewService(f.codec, failingRepo{Repo: f.sessionRepo})
	require.NoError(t, err)

	_, err = service.QRLogin(context.Background(), f.qrCredential(t, testVendorID, testPlantID))
	require.Error(t, err)
	require.False(t, errors.Is(err, auth.ErrAuthenticationFailed))
	require.True(t, errors.Is(err, sessions.ErrDuplicateToken))
}

func TestQRLogin_SupersedeFailureKeepsNewSession(t *testing.T) {
	f := setupTestFixture(t)
	service, err := auth.NewService(f.codec, supersedeFailingRepo{Repo: f.sessionRepo},
		auth.WithNowTime(f.clock.Now),
		auth.WithSingleActiveSession(true),
	)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	valid, err := service.ValidateSession(ctx, resp.AccessToken)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, 1, f.sessionRepo.Len())
}

func TestQRLogin_TwiceCreatesIndependentSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	second, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	for _, accessToken := range []string{first.AccessToken, second.AccessToken} {
		valid, err := f.service.ValidateSession(ctx, accessToken)
		require.NoError(t, err)
		require.True(t, valid)
	}
	require.Equal(t, 2, f.sessionRepo.Len())
}

func TestQRLogin_SingleActiveSession(t *testing.T) {
	f := setupTestFixture(t, auth.WithSingleActiveSession(true))
	ctx := context.Background()

	first, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)
	otherPlant, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, "Plant2"))
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)

	valid, err := f.service.ValidateSession(ctx, first.AccessToken)
	require.NoError(t, err)
	require.False(t, valid)

	status, _, err := f.service.SessionStatus(ctx, first.AccessToken)
	require.NoError(t, err)
	require.Equal(t, auth.SessionSuperseded, status)

	_, err = f.service.Authenticate(ctx, first.AccessToken)
	require.ErrorIs(t, err, auth.ErrSessionInvalidated)

	for _, accessToken := range []string{second.AccessToken, otherPlant.AccessToken} {
		status, _, err := f.service.SessionStatus(ctx, accessToken)
		require.NoError(t, err)
		require.Equal(t, auth.SessionActive, status)
	}
}

func TestValidateSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	resp, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)

	t.Run("unknown token", func(t *testing.T) {
		valid, err := f.service.ValidateSession(ctx, "unknown")
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("empty token", func(t *testing.T) {
		valid, err := f.service.ValidateSession(ctx, "")
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("valid until just before expiry", func(t *testing.T) {
		f.clock.Advance(sessions.DefaultExpiry - time.Nanosecond)
		valid, err := f.service.ValidateSession(ctx, resp.AccessToken)
		require.NoError(t, err)
		require.True(t, valid)
	})

	t.Run("expiry equal to now", func(t *testing.T) {
		f.clock.Advance(time.Nanosecond)
		valid, err := f.service.ValidateSession(ctx, resp.AccessToken)
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("clock past expiry before collection", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		require.Equal(t, 1, f.sessionRepo.Len())
		valid, err := f.service.ValidateSession(ctx, resp.AccessToken)
		require.NoError(t, err)
		require.False(t, valid)

		status, _, err := f.service.SessionStatus(ctx, resp.AccessToken)
		require.NoError(t, err)
		require.Equal(t, auth.SessionInvalid, status)
	})
}

func TestAuthenticate(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	resp, err := f.service.QRLogin(ctx, f.qrCredential(t, testVendorID, testPlantID))
	require.NoError(t, err)

	t.Run("technician session", func(t *testing.T) {
		principal, err := f.service.Authenticate(ctx, resp.AccessToken)
		require.NoError(t, err)
		require.Equal(t, token.RoleTechnician, principal.Role)
		require.Equal(t, testVendorID, principal.VendorID)
		require.Equal(t, testPlantID, principal.PlantID)
		require.False(t, principal.IsAdmin())
	})

	t.Run("signed token without session", func(t *testing.T) {
		orphan, err := f.codec.IssueSession(token.Payload{VendorID: testVendorID, PlantID: testPlantID})
		require.NoError(t, err)
		_, err = f.service.Authenticate(ctx, orphan)
		require.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.service.Authenticate(ctx, "garbage")
		require.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("admin token", func(t *testing.T) {
		adminToken, expiresAt, err := f.service.IssueAdminToken("admin-1")
		require.NoError(t, err)
		require.True(t, expiresAt.Equal(f.clock.Now().Add(token.SessionTokenExpiry)))

		principal, err := f.service.Authenticate(ctx, adminToken)
		require.NoError(t, err)
		require.True(t, principal.IsAdmin())
		require.Equal(t, "admin-1", principal.Subject)
	})

	t.Run("admin token cannot log in by QR", func(t *testing.T) {
		adminToken, _, err := f.service.IssueAdminToken("admin-1")
		require.NoError(t, err)
		_, err = f.service.QRLogin(ctx, adminToken)
		require.ErrorIs(t, err, auth.ErrAuthenticationFailed)
	})

	t.Run("expired session", func(t *testing.T) {
		f.clock.Advance(sessions.DefaultExpiry)
		_, err := f.service.Authenticate(ctx, resp.AccessToken)
		require.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

func TestGenerateQRCredential(t *testing.T) {
	f := setupTestFixture(t, auth.WithQRTokenValidity(48*time.Hour))
	ctx := context.Background()

	raw, expiresAt, err := f.service.GenerateQRCredential(testVendorID, testPlantID, 0)
	require.NoError(t, err)
	require.True(t, expiresAt.Equal(f.clock.Now().Add(48*time.Hour)))

	resp, err := f.service.QRLogin(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, testVendorID, resp.VendorID)

	_, expiresAt, err = f.service.GenerateQRCredential(testVendorID, testPlantID, time.Hour)
	require.NoError(t, err)
	require.True(t, expiresAt.Equal(f.clock.Now().Add(time.Hour)))

	_, _, err = f.service.GenerateQRCredential("", testPlantID, 0)
	require.Error(t, err)
}

func TestSessionStatus_String(t *testing.T) {
	require.Equal(t, "active", auth.SessionActive.String())
	require.Equal(t, "superseded", auth.SessionSuperseded.String())
	require.Equal(t, "invalid", auth.SessionInvalid.String())
}

// failingRepo rejects every insert as a token collision
type failingRepo struct {
	sessions.Repo
}

func (failingRepo) Create(context.Context, string, string, string) (*sessions.Record, error) {
	return nil, sessions.ErrDuplicateToken
}

// supersedeFailingRepo stores sessions but cannot supersede them
type supersedeFailingRepo struct {
	sessions.Repo
}

func (supersedeFailingRepo) SupersedeOthers(context.Context, string, string, string) (int, error) {
	return 0, errors.New("store unavailable")
}
