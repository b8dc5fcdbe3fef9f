package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/kopra/internal/answer"
	"github.com/verte-zerg/kopra/internal/blank"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/pos"
)

// styledWord is one rendered sentence token with its cell width.
type styledWord struct {
	s     string
	width int
}

const blankFill = "＿＿＿"

// buildStyledWords renders the tokens of bp. Filled blanks show their value,
// the active blank shows live input, and a revealed phrase shows every
// answer highlighted.
func buildStyledWords(bp model.BlankPhrase, c *answer.Checker, live string, revealed bool) []styledWord {
	restored := blank.Restore(bp)
	slot := make(map[int]int, len(bp.BlankIndices))
	for i, idx := range bp.BlankIndices {
		slot[idx] = i
	}

	out := make([]styledWord, 0, len(bp.Tokens))
	for idx, token := range bp.Tokens {
		i, isBlank := slot[idx]
		text, style := token, correctStyle
		switch {
		case !isBlank:
		case revealed:
			text, style = restored[idx], currentWordStyle
		case c != nil && i == c.Current():
			text, style = live, cursorStyle
			if text == "" {
				text = blankFill
			}
		case c != nil && c.Value(i) != "":
			text, style = c.Value(i), filledStyle
		default:
			text, style = blankFill, pendingStyle
		}
		out = append(out, styledWord{s: style.Render(text), width: runewidth.StringWidth(text)})
	}
	return out
}

// wrapStyledWords breaks words into lines no wider than width. A word wider
// than the line gets a line of its own.
func wrapStyledWords(words []styledWord, width int) string {
	var lines []string
	var line []string
	lineWidth := 0
	for _, w := range words {
		gap := 0
		if len(line) > 0 {
			gap = 1
		}
		if width > 0 && len(line) > 0 && lineWidth+gap+w.width > width {
			lines = append(lines, strings.Join(line, " "))
			line, lineWidth, gap = nil, 0, 0
		}
		line = append(line, w.s)
		lineWidth += gap + w.width
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return strings.Join(lines, "\n")
}

// blankWordType names the part of speech of blank i, preferring the stored
// per-blank type over the token labels.
func blankWordType(p model.Phrase, bp model.BlankPhrase, i int) string {
	if i >= len(bp.BlankIndices) {
		return ""
	}
	idx := bp.BlankIndices[i]
	for j, stored := range p.BlankWordIndices {
		if stored == idx && j < len(p.BlankWordTypes) && p.BlankWordTypes[j] != "" {
			return p.BlankWordTypes[j]
		}
	}
	if len(p.WordTypes) != len(bp.Tokens) {
		return ""
	}
	code := pos.Normalize(p.WordTypes[idx])
	if code == pos.Other {
		return ""
	}
	return strings.ReplaceAll(code.String(), "_", "-")
}
