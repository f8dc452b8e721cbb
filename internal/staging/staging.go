package staging

import (
	"sync"

	"tidy-go/internal/tidy"
)

// planStaging implements tidy.PlanStaging on top of a pluggable planStore.
// Plans are stored encoded, so every Get returns an independent copy.
type planStaging struct {
	store planStore
	mu    sync.Mutex
}

var _ tidy.PlanStaging = (*planStaging)(nil)

// Put stages plan as the live plan, replacing any previous one.
func (s *planStaging) Put(plan *tidy.Plan) error {
	data, err := encodePlan(plan)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Write(data)
}

// Get returns the live plan, or nil when nothing is staged.
func (s *planStaging) Get() (*tidy.Plan, error) {
	s.mu.Lock()
	data, err := s.store.Read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return decodePlan(data)
}

// Clear discards the live plan.
func (s *planStaging) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Remove()
}
