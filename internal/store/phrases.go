package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/verte-zerg/kopra/internal/model"
)

var phraseColumns = []string{
	"id", "korean_text", "english_text", "grammar_breakdown", "word_types_json",
	"times_correct", "times_incorrect", "created_at",
}

// NormalizePhrase trims text, drops blank indices that are negative, out of
// range or repeated (with their aligned answers and types) and validates the
// result.
func (s *Store) NormalizePhrase(p model.Phrase) (model.Phrase, error) {
	p.KoreanText = strings.TrimSpace(p.KoreanText)
	p.EnglishText = strings.TrimSpace(p.EnglishText)
	p.GrammarBreakdown = strings.TrimSpace(p.GrammarBreakdown)
	tokens := strings.Fields(p.KoreanText)

	seen := map[int]struct{}{}
	var (
		indices []int
		answers []model.Answers
		types   []string
	)
	for i, idx := range p.BlankWordIndices {
		if idx < 0 || idx >= len(tokens) {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)

		var alts model.Answers
		if i < len(p.CorrectAnswers) {
			for _, a := range p.CorrectAnswers[i] {
				if a = strings.TrimSpace(a); a != "" {
					alts = append(alts, a)
				}
			}
		}
		answers = append(answers, alts)

		typ := ""
		if i < len(p.BlankWordTypes) {
			typ = strings.TrimSpace(p.BlankWordTypes[i])
		}
		types = append(types, typ)
	}
	p.BlankWordIndices = indices
	p.CorrectAnswers = answers
	p.BlankWordTypes = types
	if len(p.WordTypes) > 0 && len(p.WordTypes) != len(tokens) {
		p.WordTypes = nil
	}

	if err := s.validate.Struct(p); err != nil {
		return model.Phrase{}, fmt.Errorf("%w: %v", ErrInvalidPhrase, err)
	}
	return p, nil
}

// ListPhrases returns every curriculum phrase, newest first.
func (s *Store) ListPhrases(ctx context.Context) ([]model.Phrase, error) {
	query := s.builder.Select(phraseColumns...).
		From("curriculum_phrases").
		OrderBy("created_at DESC", "id DESC")
	phrases, err := s.queryPhrases(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := s.attachBlanks(ctx, phrases); err != nil {
		return nil, err
	}
	return phrases, nil
}

// RandomPhrase returns one curriculum phrase chosen by SQLite.
func (s *Store) RandomPhrase(ctx context.Context) (model.Phrase, error) {
	query := s.builder.Select(phraseColumns...).
		From("curriculum_phrases").
		OrderBy("RANDOM()").
		Limit(1)
	return s.singlePhrase(ctx, query)
}

// GetPhrase returns the phrase with the given id.
func (s *Store) GetPhrase(ctx context.Context, id int64) (model.Phrase, error) {
	query := s.builder.Select(phraseColumns...).
		From("curriculum_phrases").
		Where(sq.Eq{"id": id})
	return s.singlePhrase(ctx, query)
}

func (s *Store) singlePhrase(ctx context.Context, query sq.SelectBuilder) (model.Phrase, error) {
	phrases, err := s.queryPhrases(ctx, query)
	if err != nil {
		return model.Phrase{}, err
	}
	if len(phrases) == 0 {
		return model.Phrase{}, ErrNotFound
	}
	if err := s.attachBlanks(ctx, phrases); err != nil {
		return model.Phrase{}, err
	}
	return phrases[0], nil
}

func (s *Store) queryPhrases(ctx context.Context, query sq.SelectBuilder) ([]model.Phrase, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var phrases []model.Phrase
	for rows.Next() {
		var (
			p         model.Phrase
			id        int64
			grammar   sql.NullString
			wordTypes sql.NullString
			createdAt string
		)
		if err := rows.Scan(&id, &p.KoreanText, &p.EnglishText, &grammar, &wordTypes, &p.TimesCorrect, &p.TimesIncorrect, &createdAt); err != nil {
			return nil, err
		}
		p.ID = strconv.FormatInt(id, 10)
		p.GrammarBreakdown = grammar.String
		if wordTypes.Valid && wordTypes.String != "" {
			if err := json.Unmarshal([]byte(wordTypes.String), &p.WordTypes); err != nil {
				return nil, fmt.Errorf("phrase %d word types: %w", id, err)
			}
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		phrases = append(phrases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return phrases, nil
}

// attachBlanks loads the stored blanks for the phrases in one query.
func (s *Store) attachBlanks(ctx context.Context, phrases []model.Phrase) error {
	if len(phrases) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(phrases))
	byID := make(map[int64]int, len(phrases))
	for i, p := range phrases {
		id, ok := p.StoreID()
		if !ok {
			continue
		}
		ids = append(ids, id)
		byID[id] = i
	}
	stmt, args, err := s.builder.Select("phrase_id", "word_index", "correct_answers_json", "word_type").
		From("curriculum_phrase_blanks").
		Where(sq.Eq{"phrase_id": ids}).
		OrderBy("phrase_id", "word_index").
		ToSql()
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			phraseID int64
			index    int
			answers  sql.NullString
			wordType sql.NullString
		)
		if err := rows.Scan(&phraseID, &index, &answers, &wordType); err != nil {
			return err
		}
		i, ok := byID[phraseID]
		if !ok {
			continue
		}
		var alts model.Answers
		if answers.Valid && answers.String != "" {
			if err := json.Unmarshal([]byte(answers.String), &alts); err != nil {
				return fmt.Errorf("phrase %d blank %d answers: %w", phraseID, index, err)
			}
		}
		p := &phrases[i]
		p.BlankWordIndices = append(p.BlankWordIndices, index)
		p.CorrectAnswers = append(p.CorrectAnswers, alts)
		p.BlankWordTypes = append(p.BlankWordTypes, wordType.String)
	}
	return rows.Err()
}

// AddPhrase validates and stores a curriculum phrase with its blanks.
func (s *Store) AddPhrase(ctx context.Context, p model.Phrase) (int64, error) {
	p, err := s.NormalizePhrase(p)
	if err != nil {
		return 0, err
	}
	wordTypes, err := encodeWordTypes(p.WordTypes)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	stmt, args, err := s.builder.Insert("curriculum_phrases").
		Columns("korean_text", "english_text", "grammar_breakdown", "word_types_json").
		Values(p.KoreanText, p.EnglishText, nullString(p.GrammarBreakdown), wordTypes).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := s.insertBlanks(ctx, tx, id, p); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePhrase replaces the text and blanks of an existing phrase.
func (s *Store) UpdatePhrase(ctx context.Context, id int64, p model.Phrase) error {
	p, err := s.NormalizePhrase(p)
	if err != nil {
		return err
	}
	wordTypes, err := encodeWordTypes(p.WordTypes)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	stmt, args, err := s.builder.Update("curriculum_phrases").
		Set("korean_text", p.KoreanText).
		Set("english_text", p.EnglishText).
		Set("grammar_breakdown", nullString(p.GrammarBreakdown)).
		Set("word_types_json", wordTypes).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM curriculum_phrase_blanks WHERE phrase_id = ?`, id); err != nil {
		return err
	}
	if err := s.insertBlanks(ctx, tx, id, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) insertBlanks(ctx context.Context, tx *sql.Tx, id int64, p model.Phrase) error {
	if len(p.BlankWordIndices) == 0 {
		return nil
	}
	insert := s.builder.Insert("curriculum_phrase_blanks").
		Columns("phrase_id", "word_index", "correct_answers_json", "word_type")
	for i, idx := range p.BlankWordIndices {
		var answers any
		if i < len(p.CorrectAnswers) && len(p.CorrectAnswers[i]) > 0 {
			data, err := json.Marshal([]string(p.CorrectAnswers[i]))
			if err != nil {
				return err
			}
			answers = string(data)
		}
		var wordType any
		if i < len(p.BlankWordTypes) && p.BlankWordTypes[i] != "" {
			wordType = p.BlankWordTypes[i]
		}
		insert = insert.Values(id, idx, answers, wordType)
	}
	stmt, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, stmt, args...)
	return err
}

// DeletePhrase removes a phrase and, through cascading keys, its blanks.
func (s *Store) DeletePhrase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM curriculum_phrases WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// UpdateStats counts one correct or incorrect completion of a phrase.
func (s *Store) UpdateStats(ctx context.Context, id int64, correct bool) error {
	column := "times_incorrect"
	if correct {
		column = "times_correct"
	}
	stmt, args, err := s.builder.Update("curriculum_phrases").
		Set(column, sq.Expr(column+" + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// LinkPhraseWord records that a vocabulary word appears in a phrase.
func (s *Store) LinkPhraseWord(ctx context.Context, phraseID, wordID int64, wordType model.WordType, position int) error {
	if _, err := tableFor(wordType); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO phrase_words (phrase_id, word_id, word_type, position_in_phrase)
		 VALUES (?, ?, ?, ?)`,
		phraseID, wordID, string(wordType), position)
	return err
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeWordTypes(types []string) (any, error) {
	if len(types) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(types)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
