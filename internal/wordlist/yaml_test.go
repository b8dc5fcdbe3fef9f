package wordlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadPhrases(t *testing.T) {
	path := writeFile(t, "phrases.yaml", `
- korean: 저는 학교에 가요
  english: I go to school
  blanks: [1]
  answers: [[학교에, 학교로]]
- korean: 친구를 만나요
  english: I meet a friend
  answers: [친구를]
`)
	phrases, err := LoadPhrases(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %d", len(phrases))
	}
	first := phrases[0]
	if len(first.BlankWordIndices) != 1 || first.BlankWordIndices[0] != 1 {
		t.Fatalf("unexpected blanks %v", first.BlankWordIndices)
	}
	if len(first.CorrectAnswers) != 1 || len(first.CorrectAnswers[0]) != 2 {
		t.Fatalf("unexpected answers %v", first.CorrectAnswers)
	}
	if got := phrases[1].CorrectAnswers; len(got) != 1 || got[0][0] != "친구를" {
		t.Fatalf("expected single answer string to decode, got %v", got)
	}
}

func TestLoadPhrasesRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{name: "missing english", data: "- korean: 안녕\n", want: "phrase 1"},
		{name: "unknown field", data: "- korean: 안녕\n  english: hi\n  note: x\n", want: "note"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPhrases(writeFile(t, "p.yaml", tc.data))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if _, err := LoadPhrases(writeFile(t, "empty.yaml", "")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestLoadConversations(t *testing.T) {
	path := writeFile(t, "conv.yaml", `
- title: At the cafe
  items:
    - korean: 커피 주세요
      english: Coffee, please
    - korean: 여기 있어요
      english: Here you are
`)
	sets, err := LoadConversations(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(sets) != 1 || sets[0].Title != "At the cafe" || len(sets[0].Items) != 2 {
		t.Fatalf("unexpected sets %+v", sets)
	}

	_, err = LoadConversations(writeFile(t, "bad.yaml", "- title: Empty\n"))
	if err == nil || !strings.Contains(err.Error(), "no items") {
		t.Fatalf("expected no items error, got %v", err)
	}
}
