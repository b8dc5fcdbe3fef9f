package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/kopra/internal/model"
)

func curriculumPool(ctx context.Context, src PhraseSource, cur Cursor, size int) ([]model.Phrase, Cursor, error) {
	if src == nil {
		return nil, cur, errors.New("no phrase source configured")
	}
	all, err := src.ListPhrases(ctx)
	if err != nil {
		return nil, cur, fmt.Errorf("list phrases: %w", err)
	}
	if len(all) == 0 {
		return nil, cur, nil
	}
	start := cur.Page * size
	if cur.Page < 0 || start >= len(all) {
		cur.Page = 0
		start = 0
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return append([]model.Phrase(nil), all[start:end]...), cur, nil
}

func verbPool(ctx context.Context, gen SentenceGenerator, size int) ([]model.Phrase, error) {
	if gen == nil {
		return nil, errors.New("no sentence generator configured")
	}
	pool := make([]model.Phrase, 0, size)
	var errs []error
	seen := map[string]struct{}{}
	for i := 0; i < size; i++ {
		if err := ctx.Err(); err != nil {
			return pool, err
		}
		p, err := gen.VerbSentence(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if strings.TrimSpace(p.KoreanText) == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup || p.ID == "" {
			p.ID = fmt.Sprintf("%s%d-%d", model.PrefixVerb, len(pool), i)
		}
		seen[p.ID] = struct{}{}
		pool = append(pool, p)
	}
	if len(pool) == 0 {
		return nil, errors.Join(errs...)
	}
	return pool, nil
}

func conversationPool(ctx context.Context, src ConversationSource, cur Cursor, size int) ([]model.Phrase, Cursor, error) {
	if src == nil {
		return nil, cur, errors.New("no conversation source configured")
	}
	sets, err := src.ListConversationSets(ctx)
	if err != nil {
		return nil, cur, fmt.Errorf("list conversations: %w", err)
	}
	if len(sets) == 0 {
		return nil, cur, nil
	}
	if cur.ConvSet < 0 || cur.ConvSet >= len(sets) {
		cur.ConvSet, cur.ConvItem = 0, 0
	}

	pool := make([]model.Phrase, 0, size)
	seen := map[string]struct{}{}
	wrapped := false
	for len(pool) < size {
		if cur.ConvSet >= len(sets) {
			if wrapped {
				break
			}
			wrapped = true
			cur.ConvSet, cur.ConvItem = 0, 0
		}
		set := sets[cur.ConvSet]
		if len(set.Items) == 0 {
			cur.ConvSet++
			cur.ConvItem = 0
			continue
		}
		itemIdx := cur.ConvItem % len(set.Items)
		item := set.Items[itemIdx]
		setID := set.ID
		if setID == "" {
			setID = fmt.Sprint(cur.ConvSet)
		}
		id := fmt.Sprintf("%s%s-%d", model.PrefixConversation, setID, itemIdx)
		if _, dup := seen[id]; dup {
			break
		}
		if strings.TrimSpace(item.Korean) != "" || strings.TrimSpace(item.English) != "" {
			seen[id] = struct{}{}
			pool = append(pool, model.Phrase{
				ID:          id,
				KoreanText:  item.Korean,
				EnglishText: item.English,
			})
		}
		cur.ConvItem++
		if cur.ConvItem >= len(set.Items) {
			cur.ConvSet++
			cur.ConvItem = 0
		}
	}
	return pool, cur, nil
}
