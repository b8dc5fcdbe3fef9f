package stats

import (
	"context"

	"github.com/verte-zerg/kopra/internal/model"
)

// Source is the attempt history the report reads from.
type Source interface {
	ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error)
	ListBlankAggregates(ctx context.Context, attemptIDs []int64) ([]model.WordAggregate, error)
	ListBlankStatsForAttempts(ctx context.Context, attemptIDs []int64, words []string) (map[int64]map[string]model.WordAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts         []model.AttemptAggregate
	WindowAttemptIDs []int64
	WordAggsAll      []model.WordAggregate
	WordAggsWindow   []model.WordAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	attempts, err := src.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}

	windowIDs := lastAttemptIDs(attempts, cfg.CurveWindow)
	all, err := src.ListBlankAggregates(ctx, AttemptIDs(attempts))
	if err != nil {
		return Report{}, err
	}
	windowed, err := src.ListBlankAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Attempts:         attempts,
		WindowAttemptIDs: windowIDs,
		WordAggsAll:      all,
		WordAggsWindow:   windowed,
	}, nil
}

// WordCurves loads per-attempt stats for the selected words.
func (r Report) WordCurves(ctx context.Context, src Source, words []string) (map[int64]map[string]model.WordAggregate, error) {
	return src.ListBlankStatsForAttempts(ctx, AttemptIDs(r.Attempts), words)
}

// AttemptIDs returns the ids of the attempts in order.
func AttemptIDs(attempts []model.AttemptAggregate) []int64 {
	ids := make([]int64, len(attempts))
	for i, a := range attempts {
		ids[i] = a.AttemptID
	}
	return ids
}

func lastAttemptIDs(attempts []model.AttemptAggregate, window int) []int64 {
	if window <= 0 || len(attempts) <= window {
		return AttemptIDs(attempts)
	}
	return AttemptIDs(attempts[len(attempts)-window:])
}
