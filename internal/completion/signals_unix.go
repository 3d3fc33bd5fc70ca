//go:build !windows

package completion

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// signalNames lists the host's signal names (SIGHUP, SIGINT, ...).
func signalNames() []string {
	var names []string
	for i := 1; i < 65; i++ {
		if name := unix.SignalName(syscall.Signal(i)); name != "" {
			names = append(names, name)
		}
	}
	return names
}
