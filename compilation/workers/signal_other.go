//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package workers

import "os"

// signalName returns the name of the signal which terminated a process. Signals are not reported on this platform.
func signalName(state *os.ProcessState) string {
	return ""
}
