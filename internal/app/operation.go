package app

// Operation statuses stored in the operation log.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Operation tracks a CLI command that may mutate the history database.
// Operations are created in memory with ID=0. Only commands that change the
// history persist them, and the persisted ID becomes the version of the
// history snapshot uploaded to the vaults.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation.
func NewOperation(operation, parameters string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Record marks the operation failed when err is non-nil.
func (op *Operation) Record(err error) {
	if err != nil {
		op.Status = StatusError
	}
}

// MarkPartial records that the command completed with some failures.
// It never overrides an error.
func (op *Operation) MarkPartial() {
	if op.Status == StatusSuccess {
		op.Status = StatusPartial
	}
}
