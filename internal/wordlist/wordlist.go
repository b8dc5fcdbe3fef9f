// Package wordlist loads vocabulary, phrase and conversation lists from files.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/verte-zerg/kopra/internal/model"
)

// ErrEmpty is returned when a list has no entries.
var ErrEmpty = errors.New("word list is empty")

// LoadWords reads a TSV vocabulary file. Each line is
// korean<TAB>english with an optional third romanization column. Blank lines
// and lines starting with # are skipped.
func LoadWords(path string) ([]model.Word, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	words, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// Parse reads TSV vocabulary from r.
func Parse(r io.Reader) ([]model.Word, error) {
	var words []model.Word
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: expected 2 or 3 tab-separated fields, got %d", lineNo, len(fields))
		}
		w := model.Word{
			Korean:  strings.TrimSpace(fields[0]),
			English: strings.TrimSpace(fields[1]),
		}
		if len(fields) == 3 {
			w.Romanization = strings.TrimSpace(fields[2])
		}
		if w.Korean == "" {
			return nil, fmt.Errorf("line %d: korean field is empty", lineNo)
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, ErrEmpty
	}
	return words, nil
}

// FilterHangul keeps the words whose Korean field is written in Hangul.
// Spaces and hyphens are allowed between syllables.
func FilterHangul(words []model.Word) (kept []model.Word, dropped int) {
	kept = make([]model.Word, 0, len(words))
	for _, w := range words {
		if isHangul(w.Korean) {
			kept = append(kept, w)
			continue
		}
		dropped++
	}
	return kept, dropped
}

func isHangul(s string) bool {
	seen := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Hangul, r):
			seen = true
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return seen
}
