package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/field-portal/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps session records in memory. It backs the memory driver and
// the service tests.
type FakeSessionRepo struct {
	sessions map[string]sessions.Record // accessToken -> record
	nowFunc  func() time.Time
	lock     sync.RWMutex
}

type Option func(*FakeSessionRepo)

func WithNowFunc(now func() time.Time) Option {
	return func(sr *FakeSessionRepo) {
		sr.nowFunc = now
	}
}

func NewFakeSessionRepo(options ...Option) *FakeSessionRepo {
	sr := &FakeSessionRepo{
		sessions: make(map[string]sessions.Record),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(sr)
	}
	return sr
}

func (sr *FakeSessionRepo) Create(_ context.Context, vendorID, plantID, accessToken string) (*sessions.Record, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	now := sr.nowFunc()
	if existing, ok := sr.sessions[accessToken]; ok {
		if !existing.IsExpired(now) {
			return nil, sessions.ErrDuplicateToken
		}
		// expired but not yet collected
		delete(sr.sessions, accessToken)
	}

	record := sessions.NewRecord(vendorID, plantID, accessToken, now)
	sr.sessions[accessToken] = *record
	return record, nil
}

func (sr *FakeSessionRepo) FindValid(_ context.Context, accessToken string) (*sessions.Record, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	record, ok := sr.sessions[accessToken]
	if !ok || !record.IsValid(sr.nowFunc()) {
		return nil, sessions.ErrSessionNotFound
	}
	return &record, nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, accessToken string) (*sessions.Record, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	record, ok := sr.sessions[accessToken]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	return &record, nil
}

func (sr *FakeSessionRepo) SupersedeOthers(_ context.Context, vendorID, plantID, keepToken string) (int, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	now := sr.nowFunc()
	superseded := 0
	for accessToken, record := range sr.sessions {
		if accessToken == keepToken || record.VendorID != vendorID || record.PlantID != plantID {
			continue
		}
		if !record.IsValid(now) {
			continue
		}
		supersededAt := now
		record.SupersededAt = &supersededAt
		sr.sessions[accessToken] = record
		superseded++
	}
	return superseded, nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	now := sr.nowFunc()
	for accessToken, record := range sr.sessions {
		if record.IsExpired(now) {
			delete(sr.sessions, accessToken)
		}
	}
	return nil
}

func (sr *FakeSessionRepo) Close(context.Context) error {
	return nil
}

// Len returns the number of stored records, including expired ones not yet collected.
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
