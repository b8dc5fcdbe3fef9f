// Package pos maps free-text part-of-speech labels to a small code set.
package pos

import "strings"

// Code is a coarse part-of-speech code.
type Code int

// Part-of-speech codes. The numeric values are persisted.
const (
	Other Code = iota
	Pronoun
	Noun
	ProperNoun
	Verb
	Adjective
	Adverb
	Particle
	Numeral
	Determiner
	Interjection
)

var labels = [...]string{
	Other:        "other",
	Pronoun:      "pronoun",
	Noun:         "noun",
	ProperNoun:   "proper_noun",
	Verb:         "verb",
	Adjective:    "adjective",
	Adverb:       "adverb",
	Particle:     "particle",
	Numeral:      "numeral",
	Determiner:   "determiner",
	Interjection: "interjection",
}

type rule struct {
	keywords []string
	code     Code
}

// Order matters: "proper noun" and "pronoun" must be tested before "noun".
var rules = []rule{
	{[]string{"proper"}, ProperNoun},
	{[]string{"pronoun"}, Pronoun},
	{[]string{"verb"}, Verb},
	{[]string{"adjective"}, Adjective},
	{[]string{"adverb"}, Adverb},
	{[]string{"particle", "postposition"}, Particle},
	{[]string{"numeral", "number"}, Numeral},
	{[]string{"determiner", "det"}, Determiner},
	{[]string{"interjection"}, Interjection},
	{[]string{"noun"}, Noun},
}

// Normalize maps a label to its code. The first matching rule wins.
func Normalize(label string) Code {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return Other
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(s, kw) {
				return r.code
			}
		}
	}
	return Other
}

// String returns the canonical label for the code.
func (c Code) String() string {
	if c < 0 || int(c) >= len(labels) {
		return labels[Other]
	}
	return labels[c]
}

// CodeToType returns the canonical label for a numeric code.
func CodeToType(code int) string {
	return Code(code).String()
}

// Labels returns the canonical labels in code order.
func Labels() []string {
	out := make([]string, len(labels))
	copy(out, labels[:])
	return out
}
