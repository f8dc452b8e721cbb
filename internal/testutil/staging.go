package testutil

import (
	"sync"

	"tidy-go/internal/staging"
	"tidy-go/internal/tidy"
)

// NewTestStaging creates a new in-memory plan staging area for testing.
func NewTestStaging() tidy.PlanStaging {
	return staging.NewMemoryStaging()
}

// FlakyStaging wraps a PlanStaging and fails Put or Clear on demand.
type FlakyStaging struct {
	tidy.PlanStaging

	mu        sync.Mutex
	failPut   bool
	failClear bool
}

// NewFlakyStaging wraps an in-memory staging area.
func NewFlakyStaging() *FlakyStaging {
	return &FlakyStaging{PlanStaging: staging.NewMemoryStaging()}
}

// SetFailing controls which writes return ErrInjected.
func (s *FlakyStaging) SetFailing(put, clear bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut, s.failClear = put, clear
}

func (s *FlakyStaging) Put(plan *tidy.Plan) error {
	s.mu.Lock()
	fail := s.failPut
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.PlanStaging.Put(plan)
}

func (s *FlakyStaging) Clear() error {
	s.mu.Lock()
	fail := s.failClear
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.PlanStaging.Clear()
}
