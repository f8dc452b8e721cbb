//go:build !linux && !darwin

package fs

import (
	"io/fs"
	"time"
)

// createdAt falls back to the modification time where no birth time is available.
func createdAt(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
