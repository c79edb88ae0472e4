//go:build linux || darwin || freebsd || netbsd || openbsd

package workers

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalName returns the name of the signal which terminated a process, or the empty string.
func signalName(state *os.ProcessState) string {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return ""
	}
	return unix.SignalName(status.Signal())
}
