// Package stats contains practice statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/kopra/internal/model"
)

const sparkChars = " .:-=+*#%@"

// AttemptMetrics computes answer accuracy and seconds spent per blank for an
// attempt. Accuracy counts every wrong submission against the blanks.
func AttemptMetrics(blanks, mistakes int, durationMs int64) (accuracy, secondsPerBlank float64) {
	if blanks <= 0 {
		return 0, 0
	}
	accuracy = float64(blanks) / float64(blanks+mistakes)
	if durationMs > 0 {
		secondsPerBlank = float64(durationMs) / 1000.0 / float64(blanks)
	}
	return accuracy, secondsPerBlank
}

// Totals sums attempts for summary output.
type Totals struct {
	Attempts       int
	Blanks         int
	Mistakes       int
	Perfect        int
	AvgAccuracy    float64
	AvgSecPerBlank float64
	BestStreak     int
	ByMode         map[model.Mode]int
}

// Summarize folds attempts into totals. A perfect attempt has no mistakes;
// the streak counts consecutive perfect attempts.
func Summarize(attempts []model.AttemptAggregate) Totals {
	t := Totals{ByMode: map[model.Mode]int{}}
	if len(attempts) == 0 {
		return t
	}
	var accSum, secSum float64
	var secCount, streak int
	for _, a := range attempts {
		t.Attempts++
		t.Blanks += a.Blanks
		t.Mistakes += a.Mistakes
		t.ByMode[a.Mode]++
		acc, sec := AttemptMetrics(a.Blanks, a.Mistakes, a.DurationMs)
		accSum += acc
		if sec > 0 {
			secSum += sec
			secCount++
		}
		if a.Mistakes == 0 {
			t.Perfect++
			streak++
			if streak > t.BestStreak {
				t.BestStreak = streak
			}
		} else {
			streak = 0
		}
	}
	t.AvgAccuracy = accSum / float64(t.Attempts)
	if secCount > 0 {
		t.AvgSecPerBlank = secSum / float64(secCount)
	}
	return t
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := seriesBounds(values)
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	last := len(sparkChars) - 1
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		b.WriteByte(sparkChars[clamp(idx, 0, last)])
	}
	return b.String()
}

// RenderSummary prints a summary block for attempts.
func RenderSummary(w io.Writer, attempts []model.AttemptAggregate) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	t := Summarize(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d", t.Attempts),
		fmt.Sprintf("Blanks: %d", t.Blanks),
		fmt.Sprintf("Mistakes: %d", t.Mistakes),
		fmt.Sprintf("Perfect: %d (best streak %d)", t.Perfect, t.BestStreak),
		fmt.Sprintf("Avg Accuracy: %.2f%%", t.AvgAccuracy*100),
		fmt.Sprintf("Avg Sec/Blank: %.2f", t.AvgSecPerBlank),
	}
	for _, m := range model.Modes {
		if n := t.ByMode[m]; n > 0 {
			lines = append(lines, fmt.Sprintf("  %s: %d", m, n))
		}
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints learning curves for accuracy and pace.
func RenderCurves(w io.Writer, attempts []model.AttemptAggregate, window int) error {
	return RenderCurvesWithSize(w, attempts, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, attempts []model.AttemptAggregate, window, totalWidth, height int, useColor bool) error {
	if len(attempts) == 0 {
		return nil
	}
	accs := make([]float64, len(attempts))
	pace := make([]float64, len(attempts))
	for i, a := range attempts {
		acc, sec := AttemptMetrics(a.Blanks, a.Mistakes, a.DurationMs)
		accs[i] = acc * 100
		pace[i] = sec
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
		{Name: "Sec/Blank", Values: MovingAverage(pace, window)},
	}, plotWidth(totalWidth), height, useColor)
}

// WordAccuracy returns the share of correct answers for a word.
func WordAccuracy(agg model.WordAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}

// SortByAccuracy orders words weakest first, ties broken by word.
func SortByAccuracy(aggs []model.WordAggregate) []model.WordAggregate {
	out := append([]model.WordAggregate(nil), aggs...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := WordAccuracy(out[i]), WordAccuracy(out[j])
		if ai == aj {
			return out[i].Word < out[j].Word
		}
		return ai < aj
	})
	return out
}

// RenderWordTable prints per-word aggregates, weakest first.
func RenderWordTable(w io.Writer, aggs []model.WordAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No word stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Word (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Word", "Type", "Accuracy", "Correct", "Incorrect"}
	rows := make([][]string, 0, len(aggs))
	for _, agg := range SortByAccuracy(aggs) {
		rows = append(rows, []string{
			agg.Word,
			wordTypeLabel(agg.WordType),
			fmt.Sprintf("%.2f%%", WordAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderWordCurves prints accuracy curves for selected words.
func RenderWordCurves(w io.Writer, attempts []model.AttemptAggregate, perAttempt map[int64]map[string]model.WordAggregate, words []string, window int) error {
	return RenderWordCurvesWithSize(w, attempts, perAttempt, words, window, 0, 10, false)
}

// RenderWordCurvesWithSize prints per-word accuracy curves sized to a given
// total width. Only attempts that blanked the word contribute a point.
func RenderWordCurvesWithSize(w io.Writer, attempts []model.AttemptAggregate, perAttempt map[int64]map[string]model.WordAggregate, words []string, window, totalWidth, height int, useColor bool) error {
	if len(words) == 0 || len(attempts) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Word Curves"); err != nil {
		return err
	}
	for _, word := range words {
		var series []float64
		for _, a := range attempts {
			agg, ok := perAttempt[a.AttemptID][word]
			if !ok {
				continue
			}
			series = append(series, WordAccuracy(agg)*100)
		}
		if len(series) == 0 {
			continue
		}
		if err := PlotSeriesWithColor(w, "Word "+word, []Series{
			{Name: "Accuracy", Values: MovingAverage(series, window)},
		}, plotWidth(totalWidth), height, useColor); err != nil {
			return err
		}
	}
	return nil
}

func wordTypeLabel(t string) string {
	if t == "" {
		return "-"
	}
	return t
}

func plotWidth(totalWidth int) int {
	if totalWidth <= 0 {
		return 0
	}
	return PlotWidthFor(totalWidth)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
