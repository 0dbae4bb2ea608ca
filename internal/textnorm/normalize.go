package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ligatures = strings.NewReplacer(
	"œ", "oe",
	"æ", "ae",
	"ß", "ss",
)

// Normalize lower-cases text, strips diacritics and trims it, so that
// "Paracétamol" and " paracetamol" compare equal. It never fails: text the
// transformer rejects is returned lower-cased and trimmed only.
func Normalize(s string) string {
	lowered := strings.ToLower(s)

	// A fresh chain per call; transform.Chain is not safe for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, lowered)
	if err != nil {
		folded = lowered
	}
	folded = ligatures.Replace(folded)

	// Trim last: removing a combining mark can expose trailing whitespace.
	return strings.TrimSpace(folded)
}

// Key is the identity used to de-duplicate molecules by name.
func Key(name string) string {
	return strings.Join(strings.Fields(Normalize(name)), " ")
}

// Contains reports whether the normalized submission appears inside the
// normalized reference. An empty reference only contains an empty submission.
func Contains(reference, submission string) bool {
	return strings.Contains(Normalize(reference), Normalize(submission))
}
