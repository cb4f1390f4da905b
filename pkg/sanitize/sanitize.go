package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// HTML keeps safe formatting (links, lists, emphasis) from user-authored markup.
func HTML(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}

// Text strips all markup and collapses whitespace.
func Text(s string) string {
	s = strings.NewReplacer("</p>", " ", "<br>", " ", "<br/>", " ", "</div>", " ", "</li>", " ").Replace(s)
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes, ending with an ellipsis when shortened.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
