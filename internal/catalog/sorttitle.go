package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var leadingArticles = []string{"the ", "a ", "an "}

// SortTitle derives the normalized key used for ordering book lists: case
// folded, diacritics removed, leading English article stripped.
func SortTitle(title string) string {
	folded := cases.Fold().String(strings.TrimSpace(title))
	if stripped, _, err := transform.String(stripMarks, folded); err == nil {
		folded = stripped
	}
	for _, article := range leadingArticles {
		if strings.HasPrefix(folded, article) && len(folded) > len(article) {
			folded = folded[len(article):]
			break
		}
	}
	return strings.TrimSpace(folded)
}
