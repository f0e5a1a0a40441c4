package consolegtk

import (
	"fmt"
	"strings"
)

// fontCSS styles the console widgets with a font family list such as
// "JetBrains Mono, monospace".
func fontCSS(families string, size int) string {
	var names []string
	for _, name := range strings.Split(families, ",") {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			continue
		case name == "monospace":
		case strings.ContainsAny(name, " \t"):
			name = `"` + strings.ReplaceAll(name, `"`, ``) + `"`
		}
		names = append(names, name)
	}
	names = append(names, "monospace")
	return fmt.Sprintf("textview, entry { font-family: %s; font-size: %dpt; }",
		strings.Join(dedupe(names), ", "), size)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// cellSize estimates the pixel size of one character cell for a font size
// in points, at 96 dpi.
func cellSize(points int) (width, height float64) {
	px := float64(points) * 96 / 72
	return px * 0.6, px * 1.3
}
