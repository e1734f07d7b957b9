// Package textfilter holds pre-processing filters applied to pasted text
// before it is handed to the generator.
package textfilter

import "regexp"

// Unicode whitespace: RE2's \s is ASCII only, so padding such as U+3000
// (ideographic space) and U+00A0 is added explicitly.
const (
	space    = `[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`
	nonSpace = `[^"\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`
)

// quotedSpan matches a double-quoted span with no embedded quotes. Surrounding
// whitespace inside the quotes is consumed so only the trimmed content is kept.
// [^"] also matches newlines, so spans may cross line boundaries.
var quotedSpan = regexp.MustCompile(`"` + space + `*((` + nonSpace + `[^"]*` + nonSpace + `)|` + nonSpace + `?)` + space + `*"`)

// CleanQuotes removes wrapping double quotes around tokens, e.g. spreadsheet
// cells copied as `"Alice"	"138 0013 8000"`. Unbalanced quotes are left alone.
//
// Every `"[^"]*"` pair matches, so after one pass at most a single unmatched
// quote can remain and a second pass is a no-op.
func CleanQuotes(text string) string {
	return quotedSpan.ReplaceAllString(text, "$1")
}
