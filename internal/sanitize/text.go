// Package sanitize strips markup from user-supplied text before it is stored
// or echoed back.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// Text strips all HTML tags and returns plain text.
func Text(input string) string {
	return StrictPolicy.Sanitize(input)
}

// Line strips HTML and collapses runs of whitespace, including newlines, to
// single spaces. Use for one-line fields such as names and search queries.
func Line(input string) string {
	return strings.Join(strings.Fields(Text(input)), " ")
}
