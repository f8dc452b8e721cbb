//go:build darwin

package fs

import (
	"io/fs"
	"syscall"
	"time"
)

// createdAt returns the birth time recorded by the filesystem.
func createdAt(_ string, info fs.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
}
