//go:build windows

package config

import (
	"golang.org/x/sys/windows"
)

// lockExclusive blocks until an exclusive lock on the whole file is held.
func lockExclusive(fd uintptr) error {
	var overlapped windows.Overlapped
	return windows.LockFileEx(
		windows.Handle(fd),
		windows.LOCKFILE_EXCLUSIVE_LOCK,
		0,
		0xFFFFFFFF,
		0,
		&overlapped,
	)
}

func unlock(fd uintptr) error {
	var overlapped windows.Overlapped
	return windows.UnlockFileEx(
		windows.Handle(fd),
		0,
		0xFFFFFFFF,
		0,
		&overlapped,
	)
}
