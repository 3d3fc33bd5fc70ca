//go:build !windows

package config

import (
	"syscall"
)

// lockExclusive blocks until an exclusive lock on fd is held.
func lockExclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX)
}

func unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
