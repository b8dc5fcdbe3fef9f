// Package answer checks typed answers against the blanks of a phrase.
package answer

import "strings"

const punctuation = ".,!?;:()[]{}'\"`~@#$%^&*+=|\\<>/-_"

// RemovePunctuation drops every character of the fixed punctuation set.
func RemovePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}

// Normalize strips punctuation, lowercases and trims.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(RemovePunctuation(s)))
}

// Matches reports whether input equals any alternative after normalization.
// Alternatives made only of punctuation are compared verbatim, ignoring case
// and surrounding space, so an empty input never matches them.
func Matches(input string, alternatives []string) bool {
	got := Normalize(input)
	raw := strings.TrimSpace(strings.ToLower(input))
	for _, alt := range alternatives {
		want := Normalize(alt)
		if want == "" {
			if raw != "" && raw == strings.TrimSpace(strings.ToLower(alt)) {
				return true
			}
			continue
		}
		if want == got {
			return true
		}
	}
	return false
}
