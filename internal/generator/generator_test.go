package generator

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/model"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (completion.Result, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return completion.Result{}, f.err
	}
	return completion.Result{Response: f.reply, Model: "test"}, nil
}

type fakeWords struct {
	words []model.Word
	err   error
}

func (f fakeWords) ListWordsByType(_ context.Context, t model.WordType, limit int) ([]model.Word, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.words, nil
}

func newTestGenerator(llm Completer, words WordSource) *Generator {
	return NewWithSource(llm, words, rand.NewSource(1))
}

func TestPolitePresent(t *testing.T) {
	cases := map[string]string{
		"가다":    "가요",
		"먹다":    "먹어요",
		"살다":    "살아요",
		"오다":    "와요",
		"보다":    "봐요",
		"배우다":   "배워요",
		"마시다":   "마셔요",
		"쓰다":    "써요",
		"서다":    "서요",
		"공부하다":  "공부해요",
		"하다":    "해요",
		"읽다":    "읽어요",
		"만나다":   "만나요",
		"좋아하다":  "좋아해요",
	}
	for in, want := range cases {
		if got := PolitePresent(in); got != want {
			t.Fatalf("PolitePresent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVariationParsesReply(t *testing.T) {
	llm := &fakeCompleter{reply: "Here you go:\n```json\n{\"korean_text\": \"저는 빵을 먹어요\", \"english_text\": \"I eat bread\", \"replaced_blanks\": [1]}\n```"}
	g := newTestGenerator(llm, nil)
	p := model.Phrase{
		ID:               "7",
		KoreanText:       "저는 밥을 먹어요",
		EnglishText:      "I eat rice",
		BlankWordIndices: []int{1, 2},
		WordTypes:        []string{"pronoun", "noun", "verb"},
	}
	out, err := g.Variation(context.Background(), p, map[string][]string{"noun": {"빵", "물"}})
	if err != nil {
		t.Fatalf("Variation: %v", err)
	}
	if !strings.HasPrefix(out.ID, model.PrefixVariation) {
		t.Fatalf("id = %q, want variation prefix", out.ID)
	}
	if out.KoreanText != "저는 빵을 먹어요" || out.EnglishText != "I eat bread" {
		t.Fatalf("unexpected phrase: %+v", out)
	}
	if out.Trackable() {
		t.Fatalf("variation must not be trackable")
	}
	if len(out.BlankWordIndices) != 2 || len(out.WordTypes) != 3 {
		t.Fatalf("expected blanks and word types carried over: %+v", out)
	}
	if !strings.Contains(llm.prompts[0], "빵, 물") {
		t.Fatalf("prompt should list suggested replacements: %s", llm.prompts[0])
	}
}

func TestVariationMalformed(t *testing.T) {
	g := newTestGenerator(&fakeCompleter{reply: "sorry, I cannot"}, nil)
	_, err := g.Variation(context.Background(), model.Phrase{KoreanText: "저는 가요", EnglishText: "I go"}, nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestRemix(t *testing.T) {
	g := newTestGenerator(&fakeCompleter{reply: `{"korean":"그는 책을 읽어요","english":"He reads a book"}`}, nil)
	out, err := g.Remix(context.Background(), model.Phrase{KoreanText: "저는 밥을 먹어요", EnglishText: "I eat rice"})
	if err != nil {
		t.Fatalf("Remix: %v", err)
	}
	if !strings.HasPrefix(out.ID, model.PrefixRemix) || !out.NoTrack {
		t.Fatalf("unexpected remix: %+v", out)
	}

	g = newTestGenerator(&fakeCompleter{reply: `{"korean":""}`}, nil)
	if _, err := g.Remix(context.Background(), model.Phrase{}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestVerbSentenceUsesCompletion(t *testing.T) {
	llm := &fakeCompleter{reply: `{"korean":"나는 어제 먹었어요","english":"I ate yesterday"}`}
	g := newTestGenerator(llm, fakeWords{words: []model.Word{{Korean: "먹다", English: "to eat"}}})
	out, err := g.VerbSentence(context.Background())
	if err != nil {
		t.Fatalf("VerbSentence: %v", err)
	}
	if !strings.HasPrefix(out.ID, model.PrefixVerb) || out.KoreanText != "나는 어제 먹었어요" {
		t.Fatalf("unexpected sentence: %+v", out)
	}
	if !strings.Contains(llm.prompts[0], `"먹다" (eat)`) {
		t.Fatalf("prompt should name the selected verb: %s", llm.prompts[0])
	}
}

func TestVerbSentenceFallsBackLocally(t *testing.T) {
	for _, llm := range []*fakeCompleter{
		{reply: "not json"},
		{err: errors.New("offline")},
	} {
		g := newTestGenerator(llm, fakeWords{words: []model.Word{{Korean: "가다", English: "to go"}}})
		out, err := g.VerbSentence(context.Background())
		if err != nil {
			t.Fatalf("VerbSentence: %v", err)
		}
		if !strings.HasSuffix(out.KoreanText, "오늘 가요") {
			t.Fatalf("fallback korean = %q", out.KoreanText)
		}
		if !strings.HasSuffix(out.EnglishText, "go today.") {
			t.Fatalf("fallback english = %q", out.EnglishText)
		}
		if len(out.WordTypes) != 3 {
			t.Fatalf("fallback word types = %v", out.WordTypes)
		}
	}
}

func TestVerbSentenceWithoutVerbs(t *testing.T) {
	g := newTestGenerator(&fakeCompleter{}, fakeWords{})
	if _, err := g.VerbSentence(context.Background()); !errors.Is(err, ErrNoVerbs) {
		t.Fatalf("err = %v, want ErrNoVerbs", err)
	}
	g = newTestGenerator(&fakeCompleter{}, nil)
	if _, err := g.VerbSentence(context.Background()); !errors.Is(err, ErrNoVerbs) {
		t.Fatalf("err = %v, want ErrNoVerbs", err)
	}
}

func TestExplainUsesStoredBreakdown(t *testing.T) {
	llm := &fakeCompleter{reply: "fresh"}
	g := newTestGenerator(llm, nil)
	text, err := g.Explain(context.Background(), model.Phrase{GrammarBreakdown: "stored"})
	if err != nil || text != "stored" {
		t.Fatalf("Explain = %q, %v", text, err)
	}
	if len(llm.prompts) != 0 {
		t.Fatalf("stored breakdown must not trigger a request")
	}
	text, err = g.Explain(context.Background(), model.Phrase{KoreanText: "가요", EnglishText: "go"})
	if err != nil || text != "fresh" {
		t.Fatalf("Explain = %q, %v", text, err)
	}
}

func TestTagWordTypes(t *testing.T) {
	g := newTestGenerator(&fakeCompleter{reply: `["Pronoun", "noun", "Verb (polite)"]`}, nil)
	labels, err := g.TagWordTypes(context.Background(), "저는 밥을 먹어요")
	if err != nil {
		t.Fatalf("TagWordTypes: %v", err)
	}
	want := []string{"pronoun", "noun", "verb"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}

	g = newTestGenerator(&fakeCompleter{reply: `["noun"]`}, nil)
	if _, err := g.TagWordTypes(context.Background(), "저는 밥을 먹어요"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed on length mismatch", err)
	}
}
