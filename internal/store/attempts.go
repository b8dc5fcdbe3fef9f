package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/verte-zerg/kopra/internal/model"
)

// InsertAttempt stores a completed phrase attempt and its per-blank stats.
func (s *Store) InsertAttempt(ctx context.Context, attempt model.Attempt, blanks []model.BlankStats) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO practice_attempts (started_at, ended_at, mode, phrase_id, blanks, mistakes, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(attempt.StartedAt),
		formatTime(attempt.EndedAt),
		int(attempt.Mode),
		attempt.PhraseID,
		attempt.Blanks,
		attempt.Mistakes,
		attempt.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(blanks) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO attempt_blank_stats (attempt_id, word, word_type, correct, incorrect)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(attempt_id, word) DO UPDATE SET
				correct = correct + excluded.correct,
				incorrect = incorrect + excluded.incorrect`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, bs := range blanks {
			if _, err := stmt.ExecContext(ctx, id, bs.Word, bs.WordType, bs.Correct, bs.Incorrect); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetWeakWords aggregates blank stats over the most recent attempts. A zero
// mode covers every mode.
func (s *Store) GetWeakWords(ctx context.Context, window int, mode model.Mode) ([]model.WordAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	recent := s.builder.Select("id").From("practice_attempts").
		OrderBy("ended_at DESC").
		Limit(uint64(window))
	if mode != 0 {
		recent = recent.Where(sq.Eq{"mode": int(mode)})
	}
	query := s.builder.Select("bs.word", "MAX(bs.word_type)", "SUM(bs.correct)", "SUM(bs.incorrect)").
		From("attempt_blank_stats bs").
		JoinClause(recent.Prefix("JOIN (").Suffix(") r ON r.id = bs.attempt_id")).
		GroupBy("bs.word")
	return s.queryWordAggregates(ctx, query)
}

// ListAttempts returns attempt aggregates filtered by stats config, oldest
// first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	query := s.builder.Select("id", "ended_at", "mode", "blanks", "mistakes", "duration_ms").
		From("practice_attempts").
		OrderBy("ended_at ASC")
	if cfg.Mode != 0 {
		query = query.Where(sq.Eq{"mode": int(cfg.Mode)})
	}
	if cfg.Since != nil {
		query = query.Where(sq.GtOrEq{"ended_at": formatTime(*cfg.Since)})
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var attempts []model.AttemptAggregate
	for rows.Next() {
		var (
			agg     model.AttemptAggregate
			endedAt string
			mode    int
		)
		if err := rows.Scan(&agg.AttemptID, &endedAt, &mode, &agg.Blanks, &agg.Mistakes, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := parseTime(endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		agg.Mode = model.Mode(mode)
		attempts = append(attempts, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}
	return attempts, nil
}

// ListBlankAggregates aggregates per-word blank stats across attempts.
func (s *Store) ListBlankAggregates(ctx context.Context, attemptIDs []int64) ([]model.WordAggregate, error) {
	if len(attemptIDs) == 0 {
		return nil, nil
	}
	query := s.builder.Select("word", "MAX(word_type)", "SUM(correct)", "SUM(incorrect)").
		From("attempt_blank_stats").
		Where(sq.Eq{"attempt_id": attemptIDs}).
		GroupBy("word")
	return s.queryWordAggregates(ctx, query)
}

// ListBlankStatsForAttempts returns per-attempt stats for selected words.
func (s *Store) ListBlankStatsForAttempts(ctx context.Context, attemptIDs []int64, words []string) (map[int64]map[string]model.WordAggregate, error) {
	result := map[int64]map[string]model.WordAggregate{}
	if len(attemptIDs) == 0 || len(words) == 0 {
		return result, nil
	}
	stmt, args, err := s.builder.Select("attempt_id", "word", "word_type", "correct", "incorrect").
		From("attempt_blank_stats").
		Where(sq.Eq{"attempt_id": attemptIDs, "word": words}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			attemptID int64
			agg       model.WordAggregate
		)
		if err := rows.Scan(&attemptID, &agg.Word, &agg.WordType, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		if _, ok := result[attemptID]; !ok {
			result[attemptID] = map[string]model.WordAggregate{}
		}
		result[attemptID][agg.Word] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) queryWordAggregates(ctx context.Context, query sq.SelectBuilder) ([]model.WordAggregate, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.WordAggregate
	for rows.Next() {
		var agg model.WordAggregate
		if err := rows.Scan(&agg.Word, &agg.WordType, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
