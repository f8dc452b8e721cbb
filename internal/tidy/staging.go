package tidy

// PlanStaging holds the single live plan between calls, possibly across
// process restarts. Put replaces whatever was staged before.
type PlanStaging interface {
	// Put stages plan as the live plan.
	Put(plan *Plan) error

	// Get returns the live plan, or nil when nothing is staged.
	Get() (*Plan, error)

	// Clear discards the live plan. Clearing an empty staging area is a no-op.
	Clear() error
}
