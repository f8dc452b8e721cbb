package staging

import "tidy-go/internal/tidy"

// memoryStore keeps the encoded plan in memory. The plan is lost on exit,
// which suits tests and single-process hosts.
type memoryStore struct {
	data []byte
}

// NewMemoryStaging creates an in-memory plan staging area.
func NewMemoryStaging() tidy.PlanStaging {
	return &planStaging{store: &memoryStore{}}
}

func (m *memoryStore) Read() ([]byte, error) {
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *memoryStore) Write(data []byte) error {
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Remove() error {
	m.data = nil
	return nil
}
