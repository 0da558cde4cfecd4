package sessions

import (
	"context"
	"errors"
	"time"
)

// DefaultExpiry is the absolute lifetime of a session record.
const DefaultExpiry = 8 * time.Hour

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrDuplicateToken  = errors.New("duplicate access token")
)

// Record is the server-side proof that an access token is currently valid.
// One record is written per successful QR login.
type Record struct {
	VendorID     string     `json:"vendorId" bson:"vendorId"`
	PlantID      string     `json:"plantId" bson:"plantId"`
	AccessToken  string     `json:"accessToken" bson:"accessToken"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt" bson:"expiresAt"`
	SupersededAt *time.Time `json:"supersededAt,omitempty" bson:"supersededAt,omitempty"` // set when a newer login replaced this one
}

// NewRecord builds a record created at now and expiring DefaultExpiry later.
func NewRecord(vendorID, plantID, accessToken string, now time.Time) *Record {
	return &Record{
		VendorID:    vendorID,
		PlantID:     plantID,
		AccessToken: accessToken,
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultExpiry),
	}
}

// IsExpired reports whether now has reached ExpiresAt. Expiry is exclusive.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r *Record) IsSuperseded() bool {
	return r.SupersededAt != nil
}

// IsValid is the single "is this session still good" predicate.
func (r *Record) IsValid(now time.Time) bool {
	return !r.IsExpired(now) && !r.IsSuperseded()
}

// Repo defines the interface for session record storage.
// Implementations garbage-collect records after ExpiresAt, but logical expiry
// never depends on when that happens.
type Repo interface {
	// Create persists a new record expiring DefaultExpiry from now.
	// Returns ErrDuplicateToken when accessToken is already stored.
	Create(ctx context.Context, vendorID, plantID, accessToken string) (*Record, error)

	// FindValid returns the record only while it is unexpired and not superseded,
	// otherwise ErrSessionNotFound.
	FindValid(ctx context.Context, accessToken string) (*Record, error)

	// Get returns the stored record whatever its state, or ErrSessionNotFound.
	Get(ctx context.Context, accessToken string) (*Record, error)

	// SupersedeOthers marks every other valid record of the vendor and plant as
	// superseded and returns how many were marked.
	SupersedeOthers(ctx context.Context, vendorID, plantID, keepToken string) (int, error)

	// DeleteExpired physically removes expired records where the backend does not
	// do it by itself.
	DeleteExpired(ctx context.Context) error

	Close(ctx context.Context) error
}
