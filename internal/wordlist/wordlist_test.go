package wordlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/kopra/internal/model"
)

func TestLoadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nouns.tsv")
	data := "# nouns\n학교\tschool\thakgyo\n\n친구\tfriend\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	words, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Korean != "학교" || words[0].English != "school" || words[0].Romanization != "hakgyo" {
		t.Fatalf("unexpected first word %+v", words[0])
	}
	if words[1].Romanization != "" {
		t.Fatalf("expected empty romanization, got %q", words[1].Romanization)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "missing english", input: "학교\n", want: "line 1"},
		{name: "too many fields", input: "학교\tschool\thakgyo\textra\n", want: "got 4"},
		{name: "empty korean", input: "# c\n\tschool\n", want: "line 2: korean"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if _, err := Parse(strings.NewReader("# only comments\n")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestFilterHangul(t *testing.T) {
	words := []model.Word{
		{Korean: "학교"},
		{Korean: "school"},
		{Korean: "안녕 하세요"},
		{Korean: "TV를"},
		{Korean: " "},
	}
	kept, dropped := FilterHangul(words)
	if len(kept) != 2 || dropped != 3 {
		t.Fatalf("expected 2 kept and 3 dropped, got %d and %d", len(kept), dropped)
	}
	if kept[1].Korean != "안녕 하세요" {
		t.Fatalf("unexpected kept word %q", kept[1].Korean)
	}
}
