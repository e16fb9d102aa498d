package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizer descompone, elimina diacríticos y recompone (NFD → sin marcas → NFC).
var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicaliza un nombre de producto para matching difuso:
// minúsculas, sin tildes/diacríticos y con espacios colapsados.
// "Café  Órgánico  500g" → "cafe organico 500g".
func NormalizeName(s string) string {
	clean, _, err := transform.String(normalizer, s)
	if err != nil {
		clean = s
	}
	clean = strings.ToLower(clean)
	return strings.Join(strings.Fields(clean), " ")
}
