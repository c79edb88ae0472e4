//go:build !windows

package colors

// EnableColor turns coloring on. Terminals outside of windows are assumed to support ANSI escape codes.
func EnableColor() {
	enabled = true
}
