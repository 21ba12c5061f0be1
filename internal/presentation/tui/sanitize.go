package tui

import (
	"strings"
	"unicode"
)

// Sanitize strips control characters (ANSI escapes, NUL, BEL and the like) from text
// about to be printed, keeping newlines, tabs and carriage returns. Model output is
// untrusted and must not drive the terminal.
func Sanitize(s string) string {
	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
