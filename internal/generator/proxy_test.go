package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/verte-zerg/kopra/internal/completion"
)

func TestTranslateTrimsReply(t *testing.T) {
	llm := &fakeCompleter{reply: "  저는 학교에 가요\n"}
	g := newTestGenerator(llm, nil)
	got, err := g.Translate(context.Background(), "I go to school")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "저는 학교에 가요" {
		t.Fatalf("unexpected translation %q", got)
	}
	if !strings.Contains(llm.prompts[0], "User message: I go to school") {
		t.Fatalf("prompt missing message: %s", llm.prompts[0])
	}

	if _, err := g.Translate(context.Background(), " "); !errors.Is(err, ErrEmptyPhrase) {
		t.Fatalf("expected empty phrase error, got %v", err)
	}
	llm.reply = "   "
	if _, err := g.Translate(context.Background(), "hi"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestTranslateWithoutCompleter(t *testing.T) {
	g := newTestGenerator(nil, nil)
	if _, err := g.Translate(context.Background(), "hi"); !errors.Is(err, completion.ErrNoAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestVariationsDropsIncompleteEntries(t *testing.T) {
	llm := &fakeCompleter{reply: `Sure:
[{"korean":"저는 차를 마셨어요","english":"I drank tea"},{"korean":"","english":"empty"},{"korean":"저는 운동을 하고 있어요","english":"I am working out"}]`}
	g := newTestGenerator(llm, nil)
	got, err := g.Variations(context.Background(), "저는 커피를 좋아해요", "I like coffee", []string{"우산", "카메라"})
	if err != nil {
		t.Fatalf("Variations: %v", err)
	}
	if len(got) != 2 || got[0].Korean != "저는 차를 마셨어요" || got[1].English != "I am working out" {
		t.Fatalf("unexpected variations %+v", got)
	}
	if !strings.Contains(llm.prompts[0], "우산, 카메라") {
		t.Fatalf("expected learning words in prompt")
	}
}

func TestVariationsRejectsMalformedReply(t *testing.T) {
	g := newTestGenerator(&fakeCompleter{reply: `{"korean":"물"}`}, nil)
	if _, err := g.Variations(context.Background(), "물", "water", nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if _, err := g.Variations(context.Background(), "", "water", nil); !errors.Is(err, ErrEmptyPhrase) {
		t.Fatalf("expected empty phrase error, got %v", err)
	}
}
