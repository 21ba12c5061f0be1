package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Sakura ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Blossom pinks fading to plum
	lines := []struct{ text, color string }{
		{"   ____        _                    ", "#fbcfe8"},
		{"  / ___|  __ _| | ___   _ _ __ __ _ ", "#f9a8d4"},
		{"  \\___ \\ / _` | |/ / | | | '__/ _` |", "#f472b6"},
		{"   ___) | (_| |   <| |_| | | | (_| |", "#ec4899"},
		{"  |____/ \\__,_|_|\\_\\\\__,_|_|  \\__,_|", "#db2777"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
