// Package vault keeps off-machine copies of the history database.
//
// Every item is addressed by host ID and name and carries an integer version
// (the ID of the operation that produced it), so a host can tell when its
// local database is older than the vault copy.
package vault

import "errors"

// ErrNotFound is returned by GetMetadata when nothing is stored under the host and name.
var ErrNotFound = errors.New("metadata not found")
