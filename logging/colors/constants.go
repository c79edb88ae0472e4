package colors

// Color is an SGR parameter of an ANSI escape code.
type Color int

// SGR parameters used by the console output.
const (
	BOLD      Color = 1
	RED       Color = 31
	GREEN     Color = 32
	YELLOW    Color = 33
	BLUE      Color = 34
	CYAN      Color = 36
	DARK_GRAY Color = 90
)

// LEFT_ARROW prefixes info lines on the console.
const LEFT_ARROW = "⇾"
