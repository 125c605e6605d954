package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "`", "'", "\u00b4", "'", "_", " ", "\u00a0", " ")

// Fold normalizes text for matching: lower case, accents stripped,
// typographic apostrophes unified, underscores and runs of whitespace
// collapsed to one space, and decorative punctuation trimmed from both ends.
func Fold(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = apostrophes.Replace(folded)
	folded = strings.Join(strings.Fields(folded), " ")
	return strings.Trim(folded, " .:;*#()[]")
}

func foldAll(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		f := Fold(v)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
