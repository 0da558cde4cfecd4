package token_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/field-portal/token"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, c *clock) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(secretStr, token.WithNowFunc(c.Now))
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := token.NewCodec("")
	require.Error(t, err)
	require.True(t, errors.Is(err, token.ErrMissingSecret))
}

func TestCodec_RoundTrip(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, c)

	pairs := []token.Payload{
		{VendorID: "ACME", PlantID: "Plant1"},
		{VendorID: "ACME Industrial Services", PlantID: "Plant-01"},
		{VendorID: "v:1", PlantID: "p/2", Role: token.RoleTechnician},
	}

	for _, p := range pairs {
		issuedAt := c.now
		raw, err := codec.IssueSession(p)
		require.NoError(t, err)

		// last second before expiry
		c.now = issuedAt.Add(token.SessionTokenExpiry - time.Second)
		claims, err := codec.Verify(raw)
		require.NoError(t, err)
		require.Equal(t, p.VendorID, claims.VendorID)
		require.Equal(t, p.PlantID, claims.PlantID)
		require.NotEmpty(t, claims.ID)
		c.now = issuedAt
	}
}

func TestCodec_IssueReturnsExpiry(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, c)

	raw, expiresAt, err := codec.Issue(token.Payload{VendorID: "ACME", PlantID: "Plant1"}, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, c.now.Add(24*time.Hour), expiresAt)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	require.True(t, expiresAt.Equal(claims.Expiry()))

	_, _, err = codec.Issue(token.Payload{VendorID: "ACME"}, 0)
	require.Error(t, err)
}

func TestCodec_DistinctTokensForSamePayload(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, c)

	p := token.Payload{VendorID: "ACME", PlantID: "Plant1"}
	first, err := codec.IssueSession(p)
	require.NoError(t, err)
	second, err := codec.IssueSession(p)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestCodec_Expired(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, c)

	raw, err := codec.IssueSession(token.Payload{VendorID: "ACME", PlantID: "Plant1"})
	require.NoError(t, err)

	t.Run("exactly at expiry", func(t *testing.T) {
		c.now = time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
		_, err := codec.Verify(raw)
		require.True(t, errors.Is(err, token.ErrExpiredCredential))
		require.False(t, errors.Is(err, token.ErrInvalidCredential))
	})

	t.Run("after expiry", func(t *testing.T) {
		c.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		_, err := codec.Verify(raw)
		require.True(t, errors.Is(err, token.ErrExpiredCredential))
	})
}

func TestCodec_Invalid(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, c)

	raw, err := codec.IssueSession(token.Payload{VendorID: "ACME", PlantID: "Plant1"})
	require.NoError(t, err)

	other, err := token.NewCodec("another-secret", token.WithNowFunc(c.Now))
	require.NoError(t, err)
	foreign, err := other.IssueSession(token.Payload{VendorID: "ACME", PlantID: "Plant1"})
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"vendorId": "ACME",
		"plantId":  "Plant1",
		"exp":      c.now.Add(time.Hour).Unix(),
	})
	noneToken, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"vendorId": "ACME", "plantId": "Plant1"})
	noExpiryToken, err := noExpiry.SignedString([]byte(secretStr))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":           "",
		"malformed":       "not-a-token",
		"colon separated": "ACME:Plant1:Tech001",
		"wrong secret":    foreign,
		"bad signature":   tampered,
		"alg none":        noneToken,
		"missing expiry":  noExpiryToken,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(raw)
			require.Error(t, err)
			require.True(t, errors.Is(err, token.ErrInvalidCredential))
		})
	}
}
