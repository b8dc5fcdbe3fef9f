package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/model"
)

// VariationCount is how many sentence variations are requested at once.
const VariationCount = 5

// Translate returns the Korean translation of an English message, or the
// English translation of a Korean one.
func (g *Generator) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyPhrase
	}
	prompt := `Read the following user message. If the message is in english, return the translated version of the message, in korean polite casual form. ` +
		`If the message is in korean, return just the english translation of the message. ` +
		`ONLY RETURN EITHER THE TRANSLATED KOREAN, OR THE TRANSLATED ENGLISH, WITH NO EXPLANATION OR FURTHER TEXT.
User message: ` + text

	reply, err := g.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrMalformed
	}
	return reply, nil
}

// Variations asks for VariationCount sentences that differ clearly from the
// model sentence. Learning words are offered when they fit naturally.
// Entries missing either side are dropped.
func (g *Generator) Variations(ctx context.Context, korean, english string, learning []string) ([]model.SentencePair, error) {
	korean, english = strings.TrimSpace(korean), strings.TrimSpace(english)
	if korean == "" || english == "" {
		return nil, ErrEmptyPhrase
	}
	var learningLine string
	if len(learning) > 0 {
		learningLine = "\nTarget learning words to favor (include 1-2 when natural): " + strings.Join(learning, ", ")
	}
	prompt := fmt.Sprintf(`Given this Korean model sentence: %q (English: %q)%s

Generate %d diverse sentence variations in Korean that are NATURAL and CLEARLY DIFFERENT from the model:
1) Change the main verb in MOST variations.
2) Replace core nouns with DIFFERENT categories, not trivial synonyms.
3) Vary tense, aspect and polarity: mix present, past, future, progressive (하고 있어요) and at least one negative. Keep polite casual endings throughout.
4) Keep length and complexity roughly similar, varying particles and word order naturally.
5) Avoid reusing the model's content words beyond particles.
6) Use 1-2 target learning words only when it stays natural.

Respond ONLY with a JSON array:
[{"korean": "...", "english": "..."}]`, korean, english, learningLine, VariationCount)

	reply, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("variations: %w", err)
	}
	var raw []model.SentencePair
	if !completion.DecodeArray(reply, &raw) {
		return nil, ErrMalformed
	}
	out := make([]model.SentencePair, 0, len(raw))
	for _, p := range raw {
		p.Korean, p.English = strings.TrimSpace(p.Korean), strings.TrimSpace(p.English)
		if p.Korean == "" || p.English == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrMalformed
	}
	return out, nil
}
