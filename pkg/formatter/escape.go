package formatter

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the five HTML special characters. It is not
// idempotent: escaping twice escapes the ampersands produced the first time.
func EscapeHTML(s string) string { return htmlEscaper.Replace(s) }

// EscapeCSV quotes s as a CSV field when it contains a comma, a quote or a
// line break. Embedded quotes are doubled.
func EscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
