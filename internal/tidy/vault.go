package tidy

import (
	"context"
	"io"
)

// Vault stores off-machine copies of the history database.
// Items are addressed by host and name and carry a version used to detect a
// local database that is behind the vault copy.
type Vault interface {
	// PutMetadata stores a named item for a host. size is the number of bytes in r.
	PutMetadata(ctx context.Context, hostID, name string, r io.Reader, size int64, version int64) error

	// GetMetadata writes the named item for a host to w.
	GetMetadata(ctx context.Context, hostID, name string, w io.Writer) error

	// GetMetadataVersion returns the stored version, or 0 when nothing is stored.
	GetMetadataVersion(ctx context.Context, hostID, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
