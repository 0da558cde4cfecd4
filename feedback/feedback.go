package feedback

import (
	"context"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
	MaxImages = 4
)

// Feedback is a technician's rating of a completed job.
type Feedback struct {
	ID        string    `json:"id" bson:"_id"`
	JobID     string    `json:"jobId" bson:"jobId"`
	VendorID  string    `json:"vendorId" bson:"vendorId"`
	PlantID   string    `json:"plantId" bson:"plantId"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	Images    []string  `json:"images,omitempty" bson:"images,omitempty"` // image references, not payloads
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Filter narrows a feedback listing. Empty fields match everything.
type Filter struct {
	VendorID  string
	PlantID   string
	JobID     string
	HasImages *bool
}

// Matches applies the filter to a single entry.
func (f Filter) Matches(fb *Feedback) bool {
	if f.VendorID != "" && f.VendorID != fb.VendorID {
		return false
	}
	if f.PlantID != "" && f.PlantID != fb.PlantID {
		return false
	}
	if f.JobID != "" && f.JobID != fb.JobID {
		return false
	}
	if f.HasImages != nil && *f.HasImages != (len(fb.Images) > 0) {
		return false
	}
	return true
}

// Repo stores feedback entries.
type Repo interface {
	Insert(ctx context.Context, fb *Feedback) error
	// List returns matching entries, newest first.
	List(ctx context.Context, filter Filter) ([]*Feedback, error)
}
