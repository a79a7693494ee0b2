package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for searching (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// FoldName case-folds a name for roster membership checks.
// Diacritics are significant: "Jiří" and "Jiri" are different students.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// SameName reports whether two names refer to the same roster entry.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}

// ContainsName reports whether roster holds name, ignoring case.
func ContainsName(roster []string, name string) bool {
	_, ok := RosterName(roster, name)
	return ok
}

// RosterName returns the roster's spelling of name, ignoring case.
func RosterName(roster []string, name string) (string, bool) {
	folded := FoldName(name)
	for _, n := range roster {
		if FoldName(n) == folded {
			return n, true
		}
	}
	return "", false
}

// SanitizeForLog removes newlines and carriage returns to prevent log injection.
func SanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
