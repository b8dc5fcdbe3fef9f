package blank

import (
	"math/rand"
	"sort"
	"time"

	"github.com/verte-zerg/kopra/internal/model"
)

// Marker replaces a blanked token in the display text.
const Marker = "[BLANK]"

// Blank count bounds.
const (
	MinBlanks = 1
	MaxBlanks = 3
)

// Builder chooses blank positions with its own random source.
type Builder struct {
	rnd *rand.Rand
}

// New returns a Builder seeded with the current time.
func New() *Builder {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Builder drawing from src.
func NewWithSource(src rand.Source) *Builder {
	return &Builder{rnd: rand.New(src)}
}

// ClampCount limits a requested blank count to [MinBlanks, MaxBlanks].
func ClampCount(k int) int {
	if k < MinBlanks {
		return MinBlanks
	}
	if k > MaxBlanks {
		return MaxBlanks
	}
	return k
}

// Choose picks k blank positions uniformly from the candidates, or from every
// position when there are fewer than k candidates.
func (b *Builder) Choose(tokens, labels []string, k int) []int {
	if len(tokens) == 0 {
		return nil
	}
	k = ClampCount(k)
	pool := Candidates(tokens, labels)
	if len(pool) < k {
		pool = allIndices(len(tokens))
	}
	return sortedUnique(b.draw(pool, k))
}

// ChooseVerbFirst fills up to half of the blanks with verb-like tokens.
func (b *Builder) ChooseVerbFirst(tokens, labels []string, k int) []int {
	if len(tokens) == 0 {
		return nil
	}
	k = ClampCount(k)
	candidates := Candidates(tokens, labels)
	if len(candidates) == 0 {
		return allIndices(len(tokens))[:minInt(k, len(tokens))]
	}
	verbs, others := VerbPriority(tokens, labels, candidates)
	verbCount := minInt(len(verbs), (k+1)/2)

	chosen := b.draw(verbs, verbCount)
	chosen = append(chosen, b.draw(others, k-verbCount)...)
	if len(chosen) < k {
		chosen = append(chosen, b.draw(without(candidates, chosen), k-len(chosen))...)
	}
	if len(chosen) < k {
		chosen = append(chosen, b.draw(without(allIndices(len(tokens)), chosen), k-len(chosen))...)
	}
	return sortedUnique(chosen)
}

// ChooseWeighted draws without replacement, giving tokens in weak a weight
// of 1+factor instead of 1.
func (b *Builder) ChooseWeighted(tokens, labels []string, k int, weak map[string]struct{}, factor float64) []int {
	if len(weak) == 0 || factor <= 0 {
		return b.Choose(tokens, labels, k)
	}
	if len(tokens) == 0 {
		return nil
	}
	k = ClampCount(k)
	pool := Candidates(tokens, labels)
	if len(pool) < k {
		pool = allIndices(len(tokens))
	}
	pool = append([]int(nil), pool...)
	weights := make([]float64, len(pool))
	for i, idx := range pool {
		weights[i] = 1
		if _, ok := weak[tokens[idx]]; ok {
			weights[i] += factor
		}
	}

	chosen := make([]int, 0, k)
	for len(chosen) < k && len(pool) > 0 {
		total := 0.0
		for _, w := range weights {
			total += w
		}
		r := b.rnd.Float64() * total
		pick := len(pool) - 1
		acc := 0.0
		for j, w := range weights {
			acc += w
			if r < acc {
				pick = j
				break
			}
		}
		chosen = append(chosen, pool[pick])
		pool = append(pool[:pick], pool[pick+1:]...)
		weights = append(weights[:pick], weights[pick+1:]...)
	}
	return sortedUnique(chosen)
}

// Build blanks the phrase at the given indices, choosing them at random when
// none are supplied.
func (b *Builder) Build(p model.Phrase, k int, indices []int) model.BlankPhrase {
	if len(indices) == 0 {
		indices = b.Choose(Tokenize(p.KoreanText), p.WordTypes, k)
	}
	return Build(p, k, indices)
}

func (b *Builder) draw(pool []int, n int) []int {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	rest := append([]int(nil), pool...)
	out := make([]int, 0, n)
	for len(out) < n && len(rest) > 0 {
		j := b.rnd.Intn(len(rest))
		out = append(out, rest[j])
		rest = append(rest[:j], rest[j+1:]...)
	}
	return out
}

// EvenlySpaced returns deterministic blank positions for n tokens.
func EvenlySpaced(n, k int) []int {
	if n <= 0 {
		return nil
	}
	m := minInt(ClampCount(k), maxInt(1, n/3))
	step := maxInt(1, n/(m+1))
	out := make([]int, 0, m)
	for i := 1; i <= m; i++ {
		out = append(out, minInt(n-1, i*step))
	}
	return sortedUnique(out)
}

// Build blanks the phrase without randomness. With no indices it uses the
// phrase's stored blank positions, then evenly spaced ones.
func Build(p model.Phrase, k int, indices []int) model.BlankPhrase {
	tokens := Tokenize(p.KoreanText)
	k = ClampCount(k)
	if len(indices) == 0 {
		indices = p.BlankWordIndices
	}
	if len(indices) == 0 {
		indices = EvenlySpaced(len(tokens), k)
	}
	if len(indices) > k {
		indices = indices[:k]
	}

	valid := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(tokens) {
			valid = append(valid, idx)
		}
	}
	valid = sortedUnique(valid)

	display := append([]string(nil), tokens...)
	blanks := make([]string, 0, len(valid))
	answers := make([]model.Answers, 0, len(valid))
	for _, idx := range valid {
		blanks = append(blanks, tokens[idx])
		answers = append(answers, answersFor(p, idx, tokens[idx]))
		display[idx] = Marker
	}

	return model.BlankPhrase{
		PhraseID:       p.ID,
		Tokens:         display,
		BlankIndices:   valid,
		Blanks:         blanks,
		CorrectAnswers: answers,
		Translation:    p.EnglishText,
	}
}

// Restore substitutes the blanks back into the display tokens.
func Restore(bp model.BlankPhrase) []string {
	out := append([]string(nil), bp.Tokens...)
	for i, idx := range bp.BlankIndices {
		if idx >= 0 && idx < len(out) && i < len(bp.Blanks) {
			out[idx] = bp.Blanks[i]
		}
	}
	return out
}

// answersFor returns the stored alternatives for a blank position, keyed by
// the phrase's stored blank indices, or the token itself.
func answersFor(p model.Phrase, idx int, token string) model.Answers {
	for j, stored := range p.BlankWordIndices {
		if stored != idx || j >= len(p.CorrectAnswers) {
			continue
		}
		alts := make(model.Answers, 0, len(p.CorrectAnswers[j]))
		for _, a := range p.CorrectAnswers[j] {
			if a != "" {
				alts = append(alts, a)
			}
		}
		if len(alts) > 0 {
			return alts
		}
	}
	return model.Answers{token}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func without(pool, taken []int) []int {
	skip := make(map[int]struct{}, len(taken))
	for _, t := range taken {
		skip[t] = struct{}{}
	}
	out := make([]int, 0, len(pool))
	for _, p := range pool {
		if _, ok := skip[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
