//go:build windows

package colors

import (
	"os"

	"golang.org/x/sys/windows"
)

// EnableColor turns coloring on if the console attached to stderr processes ANSI escape codes.
func EnableColor() {
	var mode uint32
	if err := windows.GetConsoleMode(windows.Handle(os.Stderr.Fd()), &mode); err != nil {
		enabled = false
		return
	}
	enabled = mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0
}
