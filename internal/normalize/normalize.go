// Package normalize canonicalizes free-text address parts so equal addresses
// compare equal regardless of accents, case or spacing.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text decomposes s, drops combining marks, uppercases it and collapses every
// whitespace run to a single space. The result has no leading or trailing
// whitespace and Text(Text(s)) == Text(s).
func Text(s string) string {
	// transform.Chain keeps state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(stripped)), " ")
}
