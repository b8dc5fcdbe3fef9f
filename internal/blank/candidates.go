// Package blank selects and builds the blanked form of a practice phrase.
package blank

import "strings"

var particles = map[string]struct{}{
	"은": {}, "는": {}, "이": {}, "가": {}, "을": {}, "를": {}, "에": {}, "에서": {},
	"에게": {}, "께": {}, "한테": {}, "으로": {}, "로": {}, "과": {}, "와": {}, "도": {},
	"만": {}, "까지": {}, "부터": {}, "보다": {}, "처럼": {}, "같이": {}, "하고": {},
}

var verbEndings = []string{"다", "요", "어요", "아요", "해요", "있어요", "었어요", "았어요", "할"}

// Tokenize splits a sentence on whitespace and drops empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// IsParticle reports whether the token is exactly one of the common particles.
func IsParticle(token string) bool {
	_, ok := particles[strings.TrimSpace(token)]
	return ok
}

// Candidates returns the indices of tokens eligible to be blanked.
// Labels are ignored unless there is exactly one per token.
func Candidates(tokens, labels []string) []int {
	labels = alignedLabels(tokens, labels)
	out := make([]int, 0, len(tokens))
	for i, token := range tokens {
		w := strings.TrimSpace(token)
		if w == "" {
			continue
		}
		if IsParticle(w) {
			continue
		}
		if labels != nil && strings.Contains(strings.ToLower(labels[i]), "proper") {
			continue
		}
		out = append(out, i)
	}
	return out
}

// VerbPriority partitions candidates into verb-like and other tokens.
func VerbPriority(tokens, labels []string, candidates []int) (verbs, others []int) {
	labels = alignedLabels(tokens, labels)
	for _, idx := range candidates {
		if idx < 0 || idx >= len(tokens) {
			continue
		}
		label := ""
		if labels != nil {
			label = strings.ToLower(labels[idx])
		}
		if isVerbLabel(label) || looksLikeVerb(tokens[idx]) {
			verbs = append(verbs, idx)
			continue
		}
		others = append(others, idx)
	}
	return verbs, others
}

func isVerbLabel(label string) bool {
	return label != "" && (strings.Contains(label, "verb") || strings.Contains(label, "v-"))
}

func looksLikeVerb(token string) bool {
	w := strings.TrimSpace(token)
	if w == "" {
		return false
	}
	if strings.Contains(w, "하고") {
		return true
	}
	for _, ending := range verbEndings {
		if strings.HasSuffix(w, ending) {
			return true
		}
	}
	return false
}

func alignedLabels(tokens, labels []string) []string {
	if len(labels) == 0 || len(labels) != len(tokens) {
		return nil
	}
	return labels
}
