//go:build unix

package pager

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes a non-blocking exclusive advisory lock on f. A file
// already held by another process yields ErrFileLocked immediately.
func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return ErrFileLocked
	}
	return err
}

// unlockFile releases the advisory lock.
func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
