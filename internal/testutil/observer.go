package testutil

import (
	"sync"

	"tidy-go/internal/tidy"
)

// RecordingObserver keeps every event it is notified of.
type RecordingObserver struct {
	mu     sync.Mutex
	events []tidy.Event
}

func (r *RecordingObserver) Notify(e tidy.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the events seen so far.
func (r *RecordingObserver) Events() []tidy.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tidy.Event(nil), r.events...)
}

// Kinds returns the kinds of the events seen so far, in order.
func (r *RecordingObserver) Kinds() []tidy.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]tidy.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Reset forgets recorded events.
func (r *RecordingObserver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
