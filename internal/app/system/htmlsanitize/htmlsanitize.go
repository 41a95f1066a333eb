// Package htmlsanitize cleans user-supplied and rendered strings for
// display.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag from an HTML document and decodes entities,
// leaving one line per non-blank text line. Script, style and title contents
// are dropped. Input that is not HTML may lose text after a bare '<'.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(s))
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// DisplayName returns the trimmed name, or fallback when the name is empty
// or whitespace. Names are data, not markup: "A<B Pharmacy" is kept as is
// and clients escape on output.
func DisplayName(s, fallback string) string {
	if name := strings.TrimSpace(s); name != "" {
		return name
	}
	return fallback
}
