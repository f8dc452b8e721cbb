package staging

// planStore abstracts where the encoded live plan is kept.
// Concurrency is managed by the caller (planStaging.mu), so stores
// do not need to be safe for concurrent use.
type planStore interface {
	// Read returns the stored bytes, or nil when nothing is stored.
	Read() ([]byte, error)

	// Write replaces the stored bytes.
	Write(data []byte) error

	// Remove deletes the stored bytes. Removing an empty store is not an error.
	Remove() error
}
