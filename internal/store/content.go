package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/kopra/internal/model"
)

// Settings keys persisted for the practice UI.
const (
	SettingPracticeBlanks = "practice_num_blanks"
	SettingPracticeMode   = "practice_mode"
)

// GetModelSentence returns the active model sentence.
func (s *Store) GetModelSentence(ctx context.Context) (model.ModelSentence, error) {
	var (
		ms        model.ModelSentence
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT english, korean, updated_at FROM model_sentence WHERE id = 1`).
		Scan(&ms.English, &ms.Korean, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ModelSentence{}, ErrNotFound
	}
	if err != nil {
		return model.ModelSentence{}, err
	}
	if ms.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.ModelSentence{}, err
	}
	return ms, nil
}

// SaveModelSentence replaces the active model sentence.
func (s *Store) SaveModelSentence(ctx context.Context, english, korean string) error {
	english = strings.TrimSpace(english)
	korean = strings.TrimSpace(korean)
	if english == "" || korean == "" {
		return errors.New("english and korean are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_sentence (id, english, korean, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			english = excluded.english,
			korean = excluded.korean,
			updated_at = excluded.updated_at`,
		english, korean, formatTime(time.Now()))
	return err
}

// DeleteModelSentence clears the active model sentence.
func (s *Store) DeleteModelSentence(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM model_sentence WHERE id = 1`)
	return err
}

// ListConversationSets returns every saved conversation with its items, in
// creation order.
func (s *Store) ListConversationSets(ctx context.Context) ([]model.ConversationSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM conversation_sets ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	var sets []model.ConversationSet
	index := map[string]int{}
	for rows.Next() {
		var (
			set       model.ConversationSet
			createdAt string
		)
		if err := rows.Scan(&set.ID, &set.Title, &createdAt); err != nil {
			closeRows(rows)
			return nil, err
		}
		if set.CreatedAt, err = parseTime(createdAt); err != nil {
			closeRows(rows)
			return nil, err
		}
		index[set.ID] = len(sets)
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		closeRows(rows)
		return nil, err
	}
	closeRows(rows)
	if len(sets) == 0 {
		return nil, nil
	}

	items, err := s.db.QueryContext(ctx,
		`SELECT set_id, korean, english FROM conversation_items ORDER BY set_id, position`)
	if err != nil {
		return nil, err
	}
	defer closeRows(items)
	for items.Next() {
		var (
			setID string
			item  model.ConversationItem
		)
		if err := items.Scan(&setID, &item.Korean, &item.English); err != nil {
			return nil, err
		}
		if i, ok := index[setID]; ok {
			sets[i].Items = append(sets[i].Items, item)
		}
	}
	if err := items.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

// SaveConversationSet stores a conversation, replacing the items of an
// existing set with the same id. A set without an id gets a new one.
func (s *Store) SaveConversationSet(ctx context.Context, set model.ConversationSet) (model.ConversationSet, error) {
	set.Title = strings.TrimSpace(set.Title)
	items := make([]model.ConversationItem, 0, len(set.Items))
	for _, item := range set.Items {
		item.Korean = strings.TrimSpace(item.Korean)
		item.English = strings.TrimSpace(item.English)
		if item.Korean == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return model.ConversationSet{}, errors.New("conversation has no items")
	}
	set.Items = items
	if set.Title == "" {
		set.Title = items[0].Korean
	}
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ConversationSet{}, err
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_sets (id, title, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title`,
		set.ID, set.Title, formatTime(set.CreatedAt)); err != nil {
		return model.ConversationSet{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_items WHERE set_id = ?`, set.ID); err != nil {
		return model.ConversationSet{}, err
	}
	insert := s.builder.Insert("conversation_items").Columns("set_id", "position", "korean", "english")
	for i, item := range set.Items {
		insert = insert.Values(set.ID, i, item.Korean, item.English)
	}
	stmt, args, err := insert.ToSql()
	if err != nil {
		return model.ConversationSet{}, err
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return model.ConversationSet{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.ConversationSet{}, err
	}
	return set, nil
}

// DeleteConversationSet removes a conversation and its items.
func (s *Store) DeleteConversationSet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversation_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

// GetSetting returns a stored setting value.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores a setting value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	stmt, args, err := s.builder.Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, stmt, args...)
	return err
}

// IntSetting returns a stored integer setting within [lo, hi], or def when
// it is missing or out of range.
func (s *Store) IntSetting(ctx context.Context, key string, def, lo, hi int) (int, error) {
	value, ok, err := s.GetSetting(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < lo || n > hi {
		return def, nil
	}
	return n, nil
}

// SetIntSetting stores an integer setting.
func (s *Store) SetIntSetting(ctx context.Context, key string, value int) error {
	return s.SetSetting(ctx, key, strconv.Itoa(value))
}

// ListSettings returns every stored setting.
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	stmt, args, err := s.builder.Select("key", "value").From("settings").OrderBy("key").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer closeRows(rows)
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
