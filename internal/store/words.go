package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/verte-zerg/kopra/internal/model"
)

// Default list sizes.
const (
	DefaultWordLimit     = 50
	DefaultLearningLimit = 200
	DefaultLearnedAt     = 20
)

type wordTable struct {
	name     string
	baseForm bool
	subtype  string
}

var wordTables = map[model.WordType]wordTable{
	model.WordNoun:        {name: "nouns"},
	model.WordProperNoun:  {name: "proper_nouns"},
	model.WordVerb:        {name: "verbs", baseForm: true, subtype: "conjugation_type"},
	model.WordAdjective:   {name: "adjectives", baseForm: true},
	model.WordAdverb:      {name: "adverbs"},
	model.WordPronoun:     {name: "pronouns", subtype: "pronoun_type"},
	model.WordConjunction: {name: "conjunctions"},
	model.WordParticle:    {name: "particles", subtype: "particle_type"},
}

func tableFor(t model.WordType) (wordTable, error) {
	table, ok := wordTables[t]
	if !ok {
		return wordTable{}, fmt.Errorf("%w: %q", ErrUnknownWordType, t)
	}
	return table, nil
}

// keyMatch matches a word by its korean text, or its dictionary form for
// tables that store one.
func (t wordTable) keyMatch(korean string) sq.Sqlizer {
	if t.baseForm {
		return sq.Or{sq.Eq{"korean": korean}, sq.Eq{"base_form": korean}}
	}
	return sq.Eq{"korean": korean}
}

func (t wordTable) columns() []string {
	baseForm := "NULL"
	if t.baseForm {
		baseForm = "base_form"
	}
	subtype := "NULL"
	if t.subtype != "" {
		subtype = t.subtype
	}
	return []string{
		"id", "korean", "english", "romanization", baseForm, subtype,
		"times_seen", "times_correct", "times_incorrect",
		"is_favorite", "is_learning", "is_learned", "created_at",
	}
}

func scanWord(rows *sql.Rows, t model.WordType) (model.Word, error) {
	var (
		w                                 model.Word
		english, roman, baseForm, subtype sql.NullString
		favorite, learning, learned       int
		createdAt                         string
	)
	if err := rows.Scan(&w.ID, &w.Korean, &english, &roman, &baseForm, &subtype,
		&w.TimesSeen, &w.TimesCorrect, &w.TimesIncorrect,
		&favorite, &learning, &learned, &createdAt); err != nil {
		return model.Word{}, err
	}
	w.Type = t
	w.English = english.String
	w.Romanization = roman.String
	w.BaseForm = baseForm.String
	w.Subtype = subtype.String
	w.IsFavorite = favorite != 0
	w.IsLearning = learning != 0
	w.IsLearned = learned != 0
	created, err := parseTime(createdAt)
	if err != nil {
		return model.Word{}, err
	}
	w.CreatedAt = created
	return w, nil
}

// ListWordsByType returns the most frequently seen words of a type.
func (s *Store) ListWordsByType(ctx context.Context, t model.WordType, limit int) ([]model.Word, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultWordLimit
	}
	stmt, args, err := s.builder.Select(table.columns()...).
		From(table.name).
		OrderBy("times_seen DESC", "created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var words []model.Word
	for rows.Next() {
		w, err := scanWord(rows, t)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// ListLearningWords returns words tagged as learning across every type,
// oldest first. Verbs are listed by their dictionary form when they have one.
func (s *Store) ListLearningWords(ctx context.Context, limit int) ([]model.Word, error) {
	if limit <= 0 {
		limit = DefaultLearningLimit
	}
	parts := make([]string, 0, len(model.WordTypes))
	for _, t := range model.WordTypes {
		table := wordTables[t]
		korean := "korean"
		if t == model.WordVerb {
			korean = "COALESCE(NULLIF(base_form, ''), korean)"
		}
		parts = append(parts, fmt.Sprintf(
			`SELECT '%s' AS type, %s AS korean, english, created_at FROM %s WHERE is_learning = 1`,
			t, korean, table.name))
	}
	query := fmt.Sprintf(`SELECT type, korean, english, created_at FROM (%s) ORDER BY created_at ASC LIMIT ?`,
		strings.Join(parts, " UNION ALL "))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var words []model.Word
	for rows.Next() {
		var (
			w         model.Word
			typ       string
			english   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&typ, &w.Korean, &english, &createdAt); err != nil {
			return nil, err
		}
		w.Type = model.WordType(typ)
		w.English = english.String
		w.IsLearning = true
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// SaveWord inserts a word marked as learning, or bumps times_seen and
// refreshes the gloss of an existing one. It returns the word id.
func (s *Store) SaveWord(ctx context.Context, w model.Word) (int64, error) {
	table, err := tableFor(w.Type)
	if err != nil {
		return 0, err
	}
	w.Korean = strings.TrimSpace(w.Korean)
	if err := s.validate.Struct(w); err != nil {
		return 0, fmt.Errorf("invalid word: %w", err)
	}

	columns := []string{"korean", "english", "romanization", "is_learning"}
	values := []any{w.Korean, nullString(strings.TrimSpace(w.English)), nullString(strings.TrimSpace(w.Romanization)), 1}
	if table.baseForm && w.BaseForm != "" {
		columns = append(columns, "base_form")
		values = append(values, strings.TrimSpace(w.BaseForm))
	}
	if table.subtype != "" && w.Subtype != "" {
		columns = append(columns, table.subtype)
		values = append(values, strings.TrimSpace(w.Subtype))
	}
	stmt, args, err := s.builder.Insert(table.name).
		Columns(columns...).
		Values(values...).
		Suffix(`ON CONFLICT(korean) DO UPDATE SET
			times_seen = times_seen + 1,
			english = excluded.english,
			romanization = excluded.romanization
			RETURNING id`).
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// IncrementWordCorrect counts a first-try correct answer for a word in every
// table that holds it. It returns the number of rows updated.
func (s *Store) IncrementWordCorrect(ctx context.Context, korean string) (int64, error) {
	return s.updateEveryTable(ctx, korean, func(t wordTable, key string) sq.UpdateBuilder {
		return s.builder.Update(t.name).
			Set("times_correct", sq.Expr("times_correct + 1")).
			Set("first_try_correct", sq.Expr("first_try_correct + 1")).
			Set("times_seen", sq.Expr("times_seen + 1")).
			Where(t.keyMatch(key))
	})
}

// EnforceLearnedThreshold marks a word learned once it was answered
// correctly threshold times. It returns the number of rows updated.
func (s *Store) EnforceLearnedThreshold(ctx context.Context, korean string, threshold int) (int64, error) {
	if threshold <= 0 {
		threshold = DefaultLearnedAt
	}
	return s.updateEveryTable(ctx, korean, func(t wordTable, key string) sq.UpdateBuilder {
		return s.builder.Update(t.name).
			Set("is_learned", 1).
			Set("is_learning", 0).
			Where(sq.And{t.keyMatch(key), sq.GtOrEq{"times_correct": threshold}})
	})
}

func (s *Store) updateEveryTable(ctx context.Context, korean string, build func(wordTable, string) sq.UpdateBuilder) (int64, error) {
	korean = strings.TrimSpace(korean)
	if korean == "" {
		return 0, nil
	}
	var total int64
	for _, t := range model.WordTypes {
		stmt, args, err := build(wordTables[t], korean).ToSql()
		if err != nil {
			return total, err
		}
		res, err := s.db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// UpdateWordTags sets the given tag flags. Nil flags are left unchanged.
func (s *Store) UpdateWordTags(ctx context.Context, t model.WordType, korean string, tags model.WordTags) (int64, error) {
	table, err := tableFor(t)
	if err != nil {
		return 0, err
	}
	update := s.builder.Update(table.name).Where(table.keyMatch(strings.TrimSpace(korean)))
	changed := false
	if tags.IsFavorite != nil {
		update = update.Set("is_favorite", boolInt(*tags.IsFavorite))
		changed = true
	}
	if tags.IsLearning != nil {
		update = update.Set("is_learning", boolInt(*tags.IsLearning))
		changed = true
	}
	if tags.IsLearned != nil {
		update = update.Set("is_learned", boolInt(*tags.IsLearned))
		changed = true
	}
	if !changed {
		return 0, nil
	}
	stmt, args, err := update.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// WordSummary counts words and total sightings per type.
func (s *Store) WordSummary(ctx context.Context) (map[model.WordType]model.WordTypeSummary, error) {
	out := make(map[model.WordType]model.WordTypeSummary, len(model.WordTypes))
	for _, t := range model.WordTypes {
		var sum model.WordTypeSummary
		query := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(times_seen), 0) FROM %s`, wordTables[t].name)
		if err := s.db.QueryRowContext(ctx, query).Scan(&sum.Count, &sum.TotalSeen); err != nil {
			return nil, err
		}
		out[t] = sum
	}
	return out, nil
}
