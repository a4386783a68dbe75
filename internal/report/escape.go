package report

import "strings"

var markupReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeMarkup neutralizes the five markup-significant characters.
func EscapeMarkup(s string) string {
	return markupReplacer.Replace(s)
}
