// Package sitegen produces the static-site support files for the published
// dataset: sitemap, robots.txt and hosting redirects.
package sitegen

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug turns a project title into an ASCII URL segment. Polish diacritics are
// stripped rather than transliterated, matching how the portal itself builds
// its URLs (ł becomes l via the stroke-less base letter).
func Slug(title string) string {
	ascii, _, err := transform.String(slugTransformer, title)
	if err != nil {
		ascii = title
	}
	// Ł and ł carry the stroke in the base rune, so NFD cannot strip it.
	ascii = strings.NewReplacer("Ł", "L", "ł", "l").Replace(ascii)
	ascii = strings.ToLower(ascii)
	ascii = nonSlugChars.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-")
}
