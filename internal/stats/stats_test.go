package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/kopra/internal/model"
)

func TestAttemptMetrics(t *testing.T) {
	acc, sec := AttemptMetrics(3, 1, 6000)
	if acc != 0.75 {
		t.Fatalf("expected accuracy 0.75, got %v", acc)
	}
	if sec != 2 {
		t.Fatalf("expected 2 seconds per blank, got %v", sec)
	}
	if acc, sec := AttemptMetrics(0, 2, 1000); acc != 0 || sec != 0 {
		t.Fatalf("expected zero metrics without blanks, got %v %v", acc, sec)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if got := MovingAverage([]float64{1, 5}, 1); got[0] != 1 || got[1] != 5 {
		t.Fatalf("expected copy for window 1, got %v", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("expected %q, got %q", " @", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
}

func TestSummarize(t *testing.T) {
	attempts := []model.AttemptAggregate{
		{Mode: model.ModeCurriculum, Blanks: 2, Mistakes: 0, DurationMs: 4000},
		{Mode: model.ModeCurriculum, Blanks: 2, Mistakes: 0, DurationMs: 2000},
		{Mode: model.ModeConversation, Blanks: 1, Mistakes: 1, DurationMs: 0},
		{Mode: model.ModeConversation, Blanks: 1, Mistakes: 0, DurationMs: 1000},
	}
	got := Summarize(attempts)
	if got.Attempts != 4 || got.Blanks != 6 || got.Mistakes != 1 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.Perfect != 3 || got.BestStreak != 2 {
		t.Fatalf("unexpected perfect counts: %+v", got)
	}
	if math.Abs(got.AvgSecPerBlank-(2+1+1)/3.0) > 1e-9 {
		t.Fatalf("unexpected pace: %v", got.AvgSecPerBlank)
	}
	if got.ByMode[model.ModeConversation] != 2 {
		t.Fatalf("unexpected mode counts: %v", got.ByMode)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No attempts found.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	err := RenderSummary(&buf, []model.AttemptAggregate{
		{EndedAt: time.Unix(0, 0), Mode: model.ModeVerbPractice, Blanks: 2, Mistakes: 2, DurationMs: 3000},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Attempts: 1", "Avg Accuracy: 50.00%", "Avg Sec/Blank: 1.50", model.ModeVerbPractice.String() + ": 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderWordTableSortsWeakestFirst(t *testing.T) {
	var buf bytes.Buffer
	err := RenderWordTable(&buf, []model.WordAggregate{
		{Word: "학교에", WordType: "noun", Correct: 4},
		{Word: "가요", WordType: "verb", Correct: 1, Incorrect: 3},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[2], "가요") {
		t.Fatalf("expected weakest word first, got %q", lines[2])
	}
	if !strings.Contains(lines[2], "25.00%") {
		t.Fatalf("expected accuracy in row, got %q", lines[2])
	}
}

func TestRenderCurves(t *testing.T) {
	var buf bytes.Buffer
	attempts := []model.AttemptAggregate{
		{AttemptID: 1, Blanks: 2, Mistakes: 1, DurationMs: 5000},
		{AttemptID: 2, Blanks: 2, Mistakes: 0, DurationMs: 3000},
	}
	if err := RenderCurves(&buf, attempts, 1); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Learning Curves") || !strings.Contains(out, "Sec/Blank") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	buf.Reset()
	per := map[int64]map[string]model.WordAggregate{
		2: {"가요": {Word: "가요", Correct: 1}},
	}
	if err := RenderWordCurves(&buf, attempts, per, []string{"가요", "없음"}, 1); err != nil {
		t.Fatalf("render: %v", err)
	}
	out = buf.String()
	if !strings.Contains(out, "Word 가요") || strings.Contains(out, "Word 없음") {
		t.Fatalf("unexpected word curves:\n%s", out)
	}
}
