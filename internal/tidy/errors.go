package tidy

import "errors"

var (
	// ErrInvalidRule is returned for a rule name the resolver does not know.
	ErrInvalidRule = errors.New("invalid organization rule")

	// ErrInvalidOptions is returned when rule options cannot produce a destination.
	ErrInvalidOptions = errors.New("invalid rule options")

	// ErrNoLivePlan is returned by lifecycle calls when no plan is staged.
	ErrNoLivePlan = errors.New("no live plan")

	// ErrPlanMismatch is returned when the caller names a plan that is not the live one.
	ErrPlanMismatch = errors.New("plan is not the live plan")

	// ErrPlanNotPreview is returned when apply or cancel targets a plan that left preview.
	ErrPlanNotPreview = errors.New("plan is not in preview")

	// ErrBatchNotFound is returned when undo names an unknown batch.
	ErrBatchNotFound = errors.New("history batch not found")

	// ErrInvalidKeepCount is returned by Prune for a negative retention count.
	ErrInvalidKeepCount = errors.New("keep count must not be negative")
)
