package wordlist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/kopra/internal/model"
)

// LoadPhrases reads a YAML sequence of phrases:
//
//	- korean: 저는 학교에 가요
//	  english: I go to school
//	  blanks: [1]
//	  answers: [[학교에, 학교로]]
func LoadPhrases(path string) ([]model.Phrase, error) {
	var phrases []model.Phrase
	if err := decodeFile(path, &phrases); err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	for i, p := range phrases {
		if strings.TrimSpace(p.KoreanText) == "" || strings.TrimSpace(p.EnglishText) == "" {
			return nil, fmt.Errorf("%s: phrase %d: korean and english are required", path, i+1)
		}
	}
	return phrases, nil
}

// LoadConversations reads a YAML sequence of conversation sets, each with a
// title and its items.
func LoadConversations(path string) ([]model.ConversationSet, error) {
	var sets []model.ConversationSet
	if err := decodeFile(path, &sets); err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	for i, set := range sets {
		if strings.TrimSpace(set.Title) == "" {
			return nil, fmt.Errorf("%s: conversation %d: title is required", path, i+1)
		}
		if len(set.Items) == 0 {
			return nil, fmt.Errorf("%s: conversation %q has no items", path, set.Title)
		}
	}
	return sets, nil
}

func decodeFile(path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w", path, ErrEmpty)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
