package fakefeedbackrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/field-portal/feedback"
)

var _ feedback.Repo = (*FakeFeedbackRepo)(nil)

type FakeFeedbackRepo struct {
	entries []feedback.Feedback
	lock    sync.RWMutex
}

func NewFakeFeedbackRepo() *FakeFeedbackRepo {
	return &FakeFeedbackRepo{}
}

func (fr *FakeFeedbackRepo) Insert(_ context.Context, fb *feedback.Feedback) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	entry := *fb
	entry.Images = append([]string(nil), fb.Images...)
	fr.entries = append(fr.entries, entry)
	return nil
}

func (fr *FakeFeedbackRepo) List(_ context.Context, filter feedback.Filter) ([]*feedback.Feedback, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	list := make([]*feedback.Feedback, 0)
	for i := range fr.entries {
		entry := fr.entries[i]
		if filter.Matches(&entry) {
			list = append(list, &entry)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}
