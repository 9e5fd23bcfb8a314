package wren

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugFolder decomposes accented characters and drops the combining
// marks, so "Café" folds to "Cafe" before slugging.
var slugFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts display text to a URL-safe identifier: accents are
// folded away, Unicode letters and digits are lowercased, and every run
// of anything else collapses into a single hyphen. The result is never
// empty; all-punctuation input maps to "-" so a slug can never collide
// with the document root. Pure and idempotent.
func Slugify(s string) string {
	if folded, _, err := transform.String(slugFolder, s); err == nil {
		s = folded
	}
	var b strings.Builder
	pendingHyphen := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			pendingHyphen = false
			continue
		}
		pendingHyphen = true
	}
	out := html.EscapeString(b.String())
	out = strings.Trim(out, "-/")
	if out == "" {
		return "-"
	}
	return out
}
