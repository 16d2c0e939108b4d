package core

// Display renders human-readable status lines to the operator or user.
type Display interface {
	Display(line string)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(line string)

// Display calls f(line).
func (f DisplayFunc) Display(line string) {
	f(line)
}

// Discard drops every line.
var Discard Display = DisplayFunc(func(string) {})
