// Package textutil normalizes Portuguese header and label text for matching.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and removes diacritics, so "Beneficiário" and
// "BENEFICIARIO" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Tokens splits folded text into alphanumeric words.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsAny reports whether the folded text contains any of the folded needles.
func ContainsAny(s string, needles ...string) bool {
	f := Fold(s)
	for _, n := range needles {
		if n != "" && strings.Contains(f, Fold(n)) {
			return true
		}
	}
	return false
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
