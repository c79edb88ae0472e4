package colors

import "fmt"

// ColorFunc renders a value with a color. Passing a ColorFunc to a logger switches the color of the arguments that
// follow it.
type ColorFunc = func(s any) string

// style returns a ColorFunc applying every code in order, innermost first.
func style(codes ...Color) ColorFunc {
	return func(s any) string {
		text := fmt.Sprintf("%v", s)
		for _, code := range codes {
			text = Colorize(text, code)
		}
		return text
	}
}

var (
	// Reset renders a value without color.
	Reset = style()

	Bold     = style(BOLD)
	Red      = style(RED)
	Green    = style(GREEN)
	DarkGray = style(DARK_GRAY)

	RedBold    = style(RED, BOLD)
	GreenBold  = style(GREEN, BOLD)
	YellowBold = style(YELLOW, BOLD)
	BlueBold   = style(BLUE, BOLD)
	CyanBold   = style(CYAN, BOLD)
)
