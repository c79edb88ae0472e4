package colors

import "fmt"

// enabled describes whether Colorize emits ANSI escape codes.
var enabled bool

func init() {
	EnableColor()
}

// Enabled returns a boolean indicating whether coloring is on.
func Enabled() bool {
	return enabled
}

// DisableColor turns coloring off, e.g. when output is redirected or the user asked for plain output.
func DisableColor() {
	enabled = false
}

// Colorize returns s wrapped in the ANSI code c, or s unchanged if coloring is off.
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
