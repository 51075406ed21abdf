package web

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// textSanitizer strips all markup. Claim values come from the token issuer and
// are rendered as plain text.
var textSanitizer = bluemonday.StrictPolicy()

// sanitizeText returns s with all HTML removed. The result is plain text;
// templ escapes it when the page is rendered.
func sanitizeText(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(textSanitizer.Sanitize(s))
}
