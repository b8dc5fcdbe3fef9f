// Package generator builds practice sentences through the completion client.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/kopra/internal/blank"
	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/pos"
)

// verbPoolSize caps how many stored verbs are offered to the prompt.
const verbPoolSize = 20

var (
	// ErrMalformed is returned when a completion carries no usable result.
	ErrMalformed = errors.New("completion did not contain a usable result")
	// ErrNoVerbs is returned when verb practice has no stored verbs to use.
	ErrNoVerbs = errors.New("no verbs stored")
	// ErrEmptyPhrase is returned for a phrase without tokens.
	ErrEmptyPhrase = errors.New("phrase has no tokens")
)

// Completer sends a prompt and returns the model reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (completion.Result, error)
}

// WordSource lists stored vocabulary.
type WordSource interface {
	ListWordsByType(ctx context.Context, t model.WordType, limit int) ([]model.Word, error)
}

// Generator produces variations, remixes and verb sentences.
type Generator struct {
	llm   Completer
	words WordSource
	mu    sync.Mutex
	rnd   *rand.Rand
}

// New returns a Generator seeded with the current time.
func New(llm Completer, words WordSource) *Generator {
	return NewWithSource(llm, words, rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Generator using src for its random choices.
func NewWithSource(llm Completer, words WordSource, src rand.Source) *Generator {
	return &Generator{llm: llm, words: words, rnd: rand.New(src)}
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(n)
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if g.llm == nil {
		return "", completion.ErrNoAPIKey
	}
	res, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return res.Response, nil
}

type variationReply struct {
	KoreanText     string `json:"korean_text"`
	EnglishText    string `json:"english_text"`
	ReplacedBlanks []int  `json:"replaced_blanks"`
}

// Variation rewords p by replacing some of its blank words with words of the
// same type. The blanks are p.BlankWordIndices, or an evenly spaced
// selection when the phrase has none.
func (g *Generator) Variation(ctx context.Context, p model.Phrase, wordsByType map[string][]string) (model.Phrase, error) {
	tokens := blank.Tokenize(p.KoreanText)
	if len(tokens) == 0 {
		return model.Phrase{}, fmt.Errorf("variation: %w", ErrEmptyPhrase)
	}
	indices := p.BlankWordIndices
	if len(indices) == 0 {
		indices = blank.EvenlySpaced(len(tokens), blank.MaxBlanks)
	}

	var lines []string
	for i, idx := range indices {
		if idx < 0 || idx >= len(tokens) {
			continue
		}
		typ := blankType(p, i, idx, len(tokens))
		options := "any appropriate " + typ
		if words := wordsByType[typ]; len(words) > 0 {
			if len(words) > 10 {
				words = words[:10]
			}
			options = strings.Join(words, ", ")
		}
		lines = append(lines, fmt.Sprintf("Blank %d (index %d): %q (type: %s). Suggested replacements: %s", i+1, idx, tokens[idx], typ, options))
	}

	prompt := fmt.Sprintf(`Generate a Korean sentence variation by replacing some blank words in this sentence.

Original Korean: %s
Original English: %s

Blank words to replace:
%s

Generate a new Korean sentence with the same structure and meaning, but replace one or more of the blank words with other appropriate words of the same type. Keep the sentence grammatically correct and natural.

Respond with ONLY a JSON object in this format:
{
  "korean_text": "new sentence with replaced words",
  "english_text": "translation of new sentence",
  "replaced_blanks": [list of blank indices that were replaced]
}`, p.KoreanText, p.EnglishText, strings.Join(lines, "\n"))

	text, err := g.complete(ctx, prompt)
	if err != nil {
		return model.Phrase{}, fmt.Errorf("variation: %w", err)
	}
	var reply variationReply
	if !completion.DecodeObject(text, &reply) {
		return model.Phrase{}, ErrMalformed
	}
	korean := strings.TrimSpace(reply.KoreanText)
	english := strings.TrimSpace(reply.EnglishText)
	if korean == "" || english == "" {
		return model.Phrase{}, ErrMalformed
	}

	out := model.Phrase{
		ID:          model.PrefixVariation + uuid.NewString(),
		KoreanText:  korean,
		EnglishText: english,
		NoTrack:     true,
	}
	newLen := len(blank.Tokenize(korean))
	for _, idx := range indices {
		if idx >= 0 && idx < newLen {
			out.BlankWordIndices = append(out.BlankWordIndices, idx)
		}
	}
	if newLen == len(tokens) && len(p.WordTypes) == newLen {
		out.WordTypes = append([]string(nil), p.WordTypes...)
	}
	return out, nil
}

func blankType(p model.Phrase, ordinal, idx, n int) string {
	if ordinal < len(p.BlankWordTypes) && p.BlankWordTypes[ordinal] != "" {
		return p.BlankWordTypes[ordinal]
	}
	if len(p.WordTypes) == n {
		if code := pos.Normalize(p.WordTypes[idx]); code != pos.Other {
			return strings.ReplaceAll(code.String(), "_", "-")
		}
	}
	return "unknown"
}

type pairReply struct {
	Korean  string `json:"korean"`
	English string `json:"english"`
}

func decodePair(text string) (string, string, bool) {
	var reply pairReply
	if !completion.DecodeObject(text, &reply) {
		return "", "", false
	}
	korean := strings.TrimSpace(reply.Korean)
	english := strings.TrimSpace(reply.English)
	if korean == "" || english == "" {
		return "", "", false
	}
	return korean, english, true
}

// Remix creates a new sentence pair that mirrors the part-of-speech shape
// of p. Remixed phrases are never tracked.
func (g *Generator) Remix(ctx context.Context, p model.Phrase) (model.Phrase, error) {
	prompt := fmt.Sprintf(`Create ONE new sentence pair (Korean + English) by REMIXING the content of the given sentence while preserving the sequence of parts of speech (POS) and clause order. Keep it natural and grammatical. Replace verbs, nouns, adjectives, tenses, and particles as needed, but mirror the original POS silhouette. Return ONLY JSON with these keys: {"korean":"…","english":"…"}.
Original (EN): %s
Original (KO): %s`, p.EnglishText, p.KoreanText)

	text, err := g.complete(ctx, prompt)
	if err != nil {
		return model.Phrase{}, fmt.Errorf("remix: %w", err)
	}
	korean, english, ok := decodePair(text)
	if !ok {
		return model.Phrase{}, ErrMalformed
	}
	return model.Phrase{
		ID:          model.PrefixRemix + uuid.NewString(),
		KoreanText:  korean,
		EnglishText: english,
		NoTrack:     true,
	}, nil
}

// VerbSentence builds a short sentence around one of the stored verbs.
func (g *Generator) VerbSentence(ctx context.Context) (model.Phrase, error) {
	if g.words == nil {
		return model.Phrase{}, ErrNoVerbs
	}
	verbs, err := g.words.ListWordsByType(ctx, model.WordVerb, verbPoolSize)
	if err != nil {
		return model.Phrase{}, fmt.Errorf("list verbs: %w", err)
	}
	return g.VerbSentenceFrom(ctx, verbs)
}

// VerbSentenceFrom builds a sentence around one of verbs. A failed or
// malformed completion falls back to a locally conjugated sentence.
func (g *Generator) VerbSentenceFrom(ctx context.Context, verbs []model.Word) (model.Phrase, error) {
	candidates := make([]model.Word, 0, len(verbs))
	for _, v := range verbs {
		if strings.TrimSpace(v.Korean) != "" {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return model.Phrase{}, ErrNoVerbs
	}
	if len(candidates) > verbPoolSize {
		candidates = candidates[:verbPoolSize]
	}
	selected := candidates[g.intn(len(candidates))]

	list := make([]string, 0, len(candidates))
	for _, v := range candidates {
		list = append(list, fmt.Sprintf("%s (%s)", strings.TrimSpace(v.Korean), englishVerb(v.English)))
	}
	prompt := fmt.Sprintf(`Return ONLY JSON: {"korean":"...","english":"..."}.
Create ONE natural Korean sentence (polite style) that includes exactly one date modifier from [오늘, 어제, 내일] and a simple subject pronoun (나/너/우리/그/그녀/그들).
IMPORTANT: Use the verb %q (%s) in this sentence. If you must use a different verb, choose a different one from this list: %s.

NEVER use Arabic numerals in Korean text, always write numbers as Korean words.
Conjugate irregular verbs correctly (ㅂ, ㄷ, 르 and ㅅ irregulars).

Conjugate the verb correctly based on tense:
- 오늘 → present tense
- 어제 → past tense
- 내일 → future tense (…(으)ㄹ 거예요)

Keep it <= 10 words. Provide the English translation matching the tense.`,
		strings.TrimSpace(selected.Korean), englishVerb(selected.English), strings.Join(list, ", "))

	if text, err := g.complete(ctx, prompt); err == nil {
		if korean, english, ok := decodePair(text); ok {
			return model.Phrase{
				ID:          model.PrefixVerb + uuid.NewString(),
				KoreanText:  korean,
				EnglishText: english,
			}, nil
		}
	}
	return g.localVerbSentence(selected), nil
}

type pronoun struct {
	korean  string
	english string
}

// Pronouns whose English forms take the plain verb.
var pronouns = []pronoun{
	{"나는", "I"},
	{"너는", "You"},
	{"우리는", "We"},
	{"그들은", "They"},
}

func (g *Generator) localVerbSentence(v model.Word) model.Phrase {
	base := strings.TrimSpace(v.BaseForm)
	if base == "" {
		base = strings.TrimSpace(v.Korean)
	}
	p := pronouns[g.intn(len(pronouns))]
	english := englishVerb(v.English)
	if english == "" {
		english = "do it"
	}
	return model.Phrase{
		ID:          model.PrefixVerb + uuid.NewString(),
		KoreanText:  fmt.Sprintf("%s 오늘 %s", p.korean, PolitePresent(base)),
		EnglishText: fmt.Sprintf("%s %s today.", p.english, english),
		WordTypes:   []string{"pronoun", "noun", "verb"},
	}
}

func englishVerb(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 3 && strings.EqualFold(s[:3], "to ") {
		s = strings.TrimSpace(s[3:])
	}
	return s
}

// Explain returns a short grammar breakdown of p. Phrases that already
// carry one are answered without a request.
func (g *Generator) Explain(ctx context.Context, p model.Phrase) (string, error) {
	if text := strings.TrimSpace(p.GrammarBreakdown); text != "" {
		return text, nil
	}
	prompt := fmt.Sprintf(`Explain this Korean sentence concisely (keep under 15 lines total).
Korean: %s
English: %s

Format your response as follows:

#### Grammar Rules Involving Endings Based on Consonant/Vowel (받침 Rules)
- State whether the verb/adjective stem ends with a consonant (받침) or vowel (no 받침)
- Explain how endings change based on 받침 presence

#### Breakdown of the Sentence

##### Particles and Their Functions
##### Tense and Politeness Levels
##### Vocabulary with Brief Glosses
##### Verb/Adjective Root Forms and Conjugations

Keep the entire explanation under 15 lines. Do NOT include romanizations, only Korean characters and English translations.`, p.KoreanText, p.EnglishText)

	text, err := g.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrMalformed
	}
	return text, nil
}

// TagWordTypes asks for one part-of-speech label per token of korean and
// returns the normalized labels.
func (g *Generator) TagWordTypes(ctx context.Context, korean string) ([]string, error) {
	tokens := blank.Tokenize(korean)
	if len(tokens) == 0 {
		return nil, ErrEmptyPhrase
	}
	prompt := fmt.Sprintf(`Return ONLY a JSON array of strings, one part-of-speech label per token, in order.
Tokens are the exact Korean tokens split by spaces: %s
Labels must be one of: pronoun, noun, proper noun, verb, adjective, adverb, particle, numeral, determiner, interjection, other.
Korean: %s`, strings.Join(tokens, " | "), korean)

	text, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("tag word types: %w", err)
	}
	labels, ok := completion.ExtractArray(text)
	if !ok || len(labels) != len(tokens) {
		return nil, ErrMalformed
	}
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = pos.Normalize(label).String()
	}
	return out, nil
}
