package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/kopra/internal/model"
)

type fakeSource struct {
	attempts []model.AttemptAggregate
	aggs     []model.WordAggregate
	curves   map[int64]map[string]model.WordAggregate
	err      error
	lastCfg  model.StatsConfig
	words    []string
}

func (f *fakeSource) ListAttempts(_ context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	f.lastCfg = cfg
	return f.attempts, f.err
}

func (f *fakeSource) ListBlankAggregates(context.Context, []int64) ([]model.WordAggregate, error) {
	return f.aggs, nil
}

func (f *fakeSource) ListBlankStatsForAttempts(_ context.Context, _ []int64, words []string) (map[int64]map[string]model.WordAggregate, error) {
	f.words = words
	return f.curves, nil
}

func sampleSource() *fakeSource {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &fakeSource{
		attempts: []model.AttemptAggregate{
			{AttemptID: 1, EndedAt: base, Mode: model.ModeCurriculum, Blanks: 2, Mistakes: 1, DurationMs: 6000},
			{AttemptID: 2, EndedAt: base.Add(time.Minute), Mode: model.ModeCurriculum, Blanks: 2, DurationMs: 4000},
		},
		aggs: []model.WordAggregate{
			{Word: "학교에", WordType: "noun", Correct: 2},
			{Word: "가요", WordType: "verb", Correct: 2, Incorrect: 1},
		},
		curves: map[int64]map[string]model.WordAggregate{
			1: {"가요": {Word: "가요", Correct: 1, Incorrect: 1}},
			2: {"가요": {Word: "가요", Correct: 1}},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelSelectsTopWords(t *testing.T) {
	src := sampleSource()
	m := NewModel(src, model.StatsConfig{CurveWindow: 5}, nil)
	if m.wordSelectionCustom {
		t.Fatalf("expected default selection")
	}
	if len(m.wordSelection) != 2 || m.wordSelection[0] != "가요" {
		t.Fatalf("unexpected selection %v", m.wordSelection)
	}
	if len(src.words) != 2 {
		t.Fatalf("expected curves loaded for the selection, got %v", src.words)
	}
	rows := m.wordTable.Rows()
	if len(rows) != 2 || rows[0][0] != "가요" {
		t.Fatalf("expected weakest word first, got %v", rows)
	}
}

func TestViewRendersTabsAndOverview(t *testing.T) {
	m := NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5}, []string{"가요"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	for _, want := range []string{"Overview", "Words", "Word Curves", "mode=any", "Attempts", "Learning Curves"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
	lines := strings.Split(view, "\n")
	if len(lines) != 40 {
		t.Fatalf("expected view to fill the height, got %d lines", len(lines))
	}

	m.Update(key("l"))
	m.Update(key("l"))
	if m.activeTab != tabWordCurves {
		t.Fatalf("expected word curves tab, got %d", m.activeTab)
	}
	if view := m.View(); !strings.Contains(view, "Words: 가요") {
		t.Fatalf("expected word header in curves tab")
	}
	m.Update(key("l"))
	if m.activeTab != tabOverview {
		t.Fatalf("expected tabs to wrap")
	}
}

func TestFilterAppliesConfig(t *testing.T) {
	src := sampleSource()
	m := NewModel(src, model.StatsConfig{CurveWindow: 5}, nil)
	m.Update(key("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[fieldMode].SetValue("verb")
	m.filterInputs[fieldSince].SetValue("2026-01-01")
	m.filterInputs[fieldLast].SetValue("10")
	m.filterInputs[fieldWindow].SetValue("3")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.filterMode {
		t.Fatalf("expected filter mode closed")
	}
	cfg := src.lastCfg
	if cfg.Mode != model.ModeVerbPractice || cfg.Last != 10 || cfg.CurveWindow != 3 || cfg.Since == nil {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestFilterRejectsInvalidInput(t *testing.T) {
	m := NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5}, nil)
	m.Update(key("/"))
	m.filterInputs[fieldSince].SetValue("yesterday")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || !strings.Contains(m.filterError, "since") {
		t.Fatalf("expected since error, got %q", m.filterError)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode || m.cfg.CurveWindow != 5 {
		t.Fatalf("expected cancel to keep config")
	}
}

func TestWordInputSelectsWords(t *testing.T) {
	src := sampleSource()
	m := NewModel(src, model.StatsConfig{CurveWindow: 5}, nil)
	m.activeTab = tabWordCurves
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.wordInputMode {
		t.Fatalf("expected word input")
	}
	m.wordInput.SetValue("학교에, 가요 학교에")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.wordSelectionCustom || strings.Join(m.wordSelection, "|") != "학교에|가요" {
		t.Fatalf("unexpected selection %v", m.wordSelection)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.wordInput.SetValue(" ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.wordSelectionCustom || len(m.wordSelection) != 2 {
		t.Fatalf("expected reset to top words, got %v", m.wordSelection)
	}
}

func TestLoadErrorIsShown(t *testing.T) {
	src := &fakeSource{err: errors.New("db locked")}
	m := NewModel(src, model.StatsConfig{}, nil)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	view := m.View()
	if !strings.Contains(view, "db locked") || !strings.Contains(view, "Failed to load stats.") {
		t.Fatalf("expected load error in view")
	}
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct {
		in, next, prev int
	}{
		{in: 1, next: 5, prev: 1},
		{in: 5, next: 10, prev: 1},
		{in: 7, next: 10, prev: 5},
		{in: 20, next: 25, prev: 15},
	}
	for _, tc := range cases {
		if got := nextCurveWindow(tc.in); got != tc.next {
			t.Fatalf("next(%d) = %d, want %d", tc.in, got, tc.next)
		}
		if got := prevCurveWindow(tc.in); got != tc.prev {
			t.Fatalf("prev(%d) = %d, want %d", tc.in, got, tc.prev)
		}
	}
}

func TestTruncateLineCountsCells(t *testing.T) {
	if got := truncateLine("학교에 가요", 7); got != "학교..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("short", 10); got != "short" {
		t.Fatalf("expected untouched line, got %q", got)
	}
}
