package domain

import "strings"

// Clean trims surrounding whitespace and strips a single trailing statement
// terminator. The result keeps the caller's original casing — it is the text
// that is ultimately executed.
func Clean(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimSuffix(s, ";")
	return s
}

// Fold returns the matching form of a cleaned statement: case-folded for the
// textual checks. Never executed.
func Fold(cleaned string) string {
	return strings.ToLower(cleaned)
}
