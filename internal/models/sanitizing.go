package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the comparison key for a widget name. Every
// case-insensitive comparison (uniqueness, edit lookup) goes through here.
func NormalizeName(name string) string {
	// a Caser keeps state, so one per call
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(name)))
}
