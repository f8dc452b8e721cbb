package tidy

import "sync"

// EventKind names a state change observers can react to.
type EventKind string

const (
	EventPlanGenerated     EventKind = "plan_generated"
	EventPlanDiscarded     EventKind = "plan_discarded"
	EventPlanApplied       EventKind = "plan_applied"
	EventPlanUndone        EventKind = "plan_undone"
	EventBatchAdded        EventKind = "batch_added"
	EventBatchUndone       EventKind = "batch_undone"
	EventHistoryPruned     EventKind = "history_pruned"
	EventRestoreFailed     EventKind = "restore_failed"
	EventPersistenceFailed EventKind = "persistence_failed"
)

// Event describes one change. Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	PlanID  string
	BatchID string
	Path    string
	Err     error
}

// Observer is notified synchronously after a change has been made.
// Observers must not call back into the component that notified them.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// observers is a small registry shared by Service and Ledger.
type observers struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Observer
}

func (o *observers) subscribe(obs Observer) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]Observer)
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = obs
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *observers) emit(e Event) {
	o.mu.Lock()
	subs := make([]Observer, 0, len(o.subs))
	// Deliver in subscription order.
	for i := 0; i < o.nextID; i++ {
		if s, ok := o.subs[i]; ok {
			subs = append(subs, s)
		}
	}
	o.mu.Unlock()

	for _, s := range subs {
		s.Notify(e)
	}
}
