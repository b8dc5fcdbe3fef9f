package stats

import (
	"sort"

	"github.com/verte-zerg/kopra/internal/model"
)

// TopWordsByFrequency returns the n most practised words.
func TopWordsByFrequency(aggs []model.WordAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := append([]model.WordAggregate(nil), aggs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := sorted[i].Correct + sorted[i].Incorrect
		tj := sorted[j].Correct + sorted[j].Incorrect
		if ti == tj {
			return sorted[i].Word < sorted[j].Word
		}
		return ti > tj
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].Word
	}
	return out
}

// SelectWeakWords picks the lowest-accuracy words. Words that were never
// answered wrong are not weak, however low the cutoff.
func SelectWeakWords(aggs []model.WordAggregate, top int) map[string]struct{} {
	weak := map[string]struct{}{}
	candidates := SortByAccuracy(aggs)
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, agg := range candidates[:top] {
		if agg.Incorrect == 0 || agg.Word == "" {
			continue
		}
		weak[agg.Word] = struct{}{}
	}
	return weak
}
