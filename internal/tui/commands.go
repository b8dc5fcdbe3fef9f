package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/kopra/internal/answer"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/session"
)

const (
	fetchTimeout = 90 * time.Second
	storeTimeout = 10 * time.Second
	variationPer = 10
)

type poolMsg struct {
	out session.Outcome
}

type phraseMsg struct {
	ticket session.Ticket
	phrase model.Phrase
	err    error
}

type explainMsg struct {
	ticket session.Ticket
	text   string
	err    error
}

type recordedMsg struct {
	attempt model.Attempt
	err     error
}

type weakMsg struct {
	aggs []model.WordAggregate
	err  error
}

type speechDoneMsg struct {
	ticket session.Ticket
}

type errMsg struct {
	err error
}

func fetchPool(src session.Sources, req session.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return poolMsg{out: session.Fetch(ctx, src, req)}
	}
}

func generate(ticket session.Ticket, fn func(ctx context.Context) (model.Phrase, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p, err := fn(ctx)
		return phraseMsg{ticket: ticket, phrase: p, err: err}
	}
}

func explain(gen Generator, ticket session.Ticket, p model.Phrase) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		text, err := gen.Explain(ctx, p)
		return explainMsg{ticket: ticket, text: text, err: err}
	}
}

// wordsByType collects stored words per type to suggest as variation
// replacements.
func wordsByType(ctx context.Context, st Store) (map[string][]string, error) {
	out := map[string][]string{}
	for _, t := range model.WordTypes {
		words, err := st.ListWordsByType(ctx, t, variationPer)
		if err != nil {
			return nil, fmt.Errorf("list %s words: %w", t, err)
		}
		for _, w := range words {
			out[string(t)] = append(out[string(t)], w.Korean)
		}
	}
	return out, nil
}

func reportIncorrect(st Store, p model.Phrase) tea.Cmd {
	if !p.Trackable() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := answer.Record(ctx, st, p, false); err != nil {
			return errMsg{err: fmt.Errorf("update phrase stats: %w", err)}
		}
		return nil
	}
}

// completion is everything needed to persist a finished phrase.
type completion struct {
	phrase    model.Phrase
	blank     model.BlankPhrase
	misses    []int
	attempt   model.Attempt
	learnedAt int
}

func recordCompletion(st Store, c completion) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		var errs []error
		stats := make([]model.BlankStats, len(c.blank.Blanks))
		for i, word := range c.blank.Blanks {
			stats[i] = model.BlankStats{
				Word:      word,
				WordType:  blankWordType(c.phrase, c.blank, i),
				Correct:   1,
				Incorrect: c.misses[i],
			}
		}
		if _, err := st.InsertAttempt(ctx, c.attempt, stats); err != nil {
			errs = append(errs, fmt.Errorf("save attempt: %w", err))
		}
		if err := answer.Record(ctx, st, c.phrase, true); err != nil {
			errs = append(errs, fmt.Errorf("update phrase stats: %w", err))
		}
		for i, word := range c.blank.Blanks {
			if c.misses[i] > 0 {
				continue
			}
			if _, err := st.IncrementWordCorrect(ctx, word); err != nil {
				errs = append(errs, fmt.Errorf("count %s: %w", word, err))
				continue
			}
			if _, err := st.EnforceLearnedThreshold(ctx, word, c.learnedAt); err != nil {
				errs = append(errs, fmt.Errorf("mark %s learned: %w", word, err))
			}
		}
		return recordedMsg{attempt: c.attempt, err: errors.Join(errs...)}
	}
}

func loadWeak(st Store, window int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		aggs, err := st.GetWeakWords(ctx, window, 0)
		return weakMsg{aggs: aggs, err: err}
	}
}

func saveSetting(st Store, key string, value int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.SetIntSetting(ctx, key, value); err != nil {
			return errMsg{err: fmt.Errorf("save %s: %w", key, err)}
		}
		return nil
	}
}

// waitSpeech delivers the next speech completion. It is re-armed after
// every delivery.
func waitSpeech(done <-chan session.Ticket) tea.Cmd {
	return func() tea.Msg {
		return speechDoneMsg{ticket: <-done}
	}
}
