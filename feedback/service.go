package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/field-portal/internal/errors"
	"github.com/pkg/errors"
)

// Submission is the technician-supplied part of a feedback entry. Vendor and plant
// come from the authenticated session, never from the request body.
type Submission struct {
	JobID    string
	VendorID string
	PlantID  string
	Rating   int
	Comment  string
	Images   []string
}

type Service struct {
	repo    Repo
	nowTime func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[feedback.NewService] feedback repo is required")
	}
	s := &Service{repo: repo, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Submit validates and stores a feedback entry.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Feedback, error) {
	jobID := strings.TrimSpace(sub.JobID)
	if jobID == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "jobId is required")
	}
	if sub.VendorID == "" || sub.PlantID == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "vendorId and plantId are required")
	}
	if sub.Rating < MinRating || sub.Rating > MaxRating {
		return nil, errors.Wrapf(apperrors.ErrInvalidRequest, "rating must be between %d and %d", MinRating, MaxRating)
	}

	images := make([]string, 0, len(sub.Images))
	for _, img := range sub.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) > MaxImages {
		return nil, errors.Wrapf(apperrors.ErrInvalidRequest, "at most %d images are allowed", MaxImages)
	}

	fb := &Feedback{
		ID:        uuid.New().String(),
		JobID:     jobID,
		VendorID:  sub.VendorID,
		PlantID:   sub.PlantID,
		Rating:    sub.Rating,
		Comment:   strings.TrimSpace(sub.Comment),
		CreatedAt: s.nowTime().UTC(),
	}
	if len(images) > 0 {
		fb.Images = images
	}

	if err := s.repo.Insert(ctx, fb); err != nil {
		return nil, errors.Wrap(err, "[Submit]")
	}
	return fb, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Feedback, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "[List]")
	}
	return list, nil
}
