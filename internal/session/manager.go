// Package session manages the rotating phrase pool of a practice session.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/kopra/internal/blank"
	"github.com/verte-zerg/kopra/internal/model"
)

// SessionSize is the number of phrases in a pool.
const SessionSize = 5

// ErrNoContent is returned when no phrase could be produced for a session.
var ErrNoContent = errors.New("no practice content available")

// PhraseSource provides curriculum phrases.
type PhraseSource interface {
	ListPhrases(ctx context.Context) ([]model.Phrase, error)
	RandomPhrase(ctx context.Context) (model.Phrase, error)
}

// SentenceGenerator produces verb-practice sentences.
type SentenceGenerator interface {
	VerbSentence(ctx context.Context) (model.Phrase, error)
}

// ConversationSource provides saved conversation sets.
type ConversationSource interface {
	ListConversationSets(ctx context.Context) ([]model.ConversationSet, error)
}

// Sources groups the content providers used to build pools.
type Sources struct {
	Phrases       PhraseSource
	Sentences     SentenceGenerator
	Conversations ConversationSource
}

// Cursor records how far a mode has walked through its content.
type Cursor struct {
	Page     int
	ConvSet  int
	ConvItem int
}

// Request describes a pool build. It is a snapshot safe to use off the
// goroutine that owns the Manager.
type Request struct {
	Epoch  uint64
	Mode   model.Mode
	Cursor Cursor
	Size   int
}

// Outcome is the result of a pool build.
type Outcome struct {
	Epoch    uint64
	Mode     model.Mode
	Pool     []model.Phrase
	Cursor   Cursor
	Fallback bool
	Err      error
}

// Ticket identifies the phrase that was current when async work started.
type Ticket struct {
	Epoch uint64
	Turn  uint64
}

// State is the consolidated practice session state.
type State struct {
	Mode    model.Mode
	Pool    []model.Phrase
	Used    map[string]struct{}
	Current model.Phrase
	Blank   model.BlankPhrase
	Loaded  bool
	Blanks  int
	Cursors map[model.Mode]Cursor
	Epoch   uint64
	Turn    uint64
}

// Manager owns the session state. It is not safe for concurrent use; async
// results are handed back through Apply and ApplyPhrase.
type Manager struct {
	src     Sources
	builder *blank.Builder
	size    int
	weak    map[string]struct{}
	factor  float64
	state   State
}

// New creates a manager for the given sources.
func New(src Sources, builder *blank.Builder, blanks int) *Manager {
	if builder == nil {
		builder = blank.New()
	}
	return &Manager{
		src:     src,
		builder: builder,
		size:    SessionSize,
		state: State{
			Mode:    model.ModeCurriculum,
			Used:    map[string]struct{}{},
			Blanks:  blank.ClampCount(blanks),
			Cursors: map[model.Mode]Cursor{},
		},
	}
}

// SetWeakWords biases blank selection toward the given words.
func (m *Manager) SetWeakWords(weak map[string]struct{}, factor float64) {
	m.weak = weak
	m.factor = factor
}

// Mode returns the active practice mode.
func (m *Manager) Mode() model.Mode { return m.state.Mode }

// Pool returns a copy of the current pool.
func (m *Manager) Pool() []model.Phrase {
	return append([]model.Phrase(nil), m.state.Pool...)
}

// Current returns the current phrase and its blanked form.
func (m *Manager) Current() (model.Phrase, model.BlankPhrase, bool) {
	return m.state.Current, m.state.Blank, m.state.Loaded
}

// Blanks returns the requested blank count.
func (m *Manager) Blanks() int { return m.state.Blanks }

// Ticket returns an identifier for the current phrase.
func (m *Manager) Ticket() Ticket {
	return Ticket{Epoch: m.state.Epoch, Turn: m.state.Turn}
}

// Progress returns how many pool phrases were used in this pass.
func (m *Manager) Progress() (used, total int) {
	for _, p := range m.state.Pool {
		if _, ok := m.state.Used[p.ID]; ok {
			used++
		}
	}
	return used, len(m.state.Pool)
}

// Exhausted reports whether every pool phrase was used in this pass.
func (m *Manager) Exhausted() bool {
	used, total := m.Progress()
	return total > 0 && used >= total
}

// Prepare starts a pool build for mode and invalidates in-flight builds.
func (m *Manager) Prepare(mode model.Mode) Request {
	m.state.Epoch++
	return Request{
		Epoch:  m.state.Epoch,
		Mode:   mode,
		Cursor: m.state.Cursors[mode],
		Size:   m.size,
	}
}

// Fetch builds the pool described by req. It does not touch manager state.
func Fetch(ctx context.Context, src Sources, req Request) Outcome {
	size := req.Size
	if size <= 0 {
		size = SessionSize
	}
	out := Outcome{Epoch: req.Epoch, Mode: req.Mode, Cursor: req.Cursor}
	var err error
	switch req.Mode {
	case model.ModeCurriculum:
		out.Pool, out.Cursor, err = curriculumPool(ctx, src.Phrases, req.Cursor, size)
	case model.ModeVerbPractice:
		out.Pool, err = verbPool(ctx, src.Sentences, size)
	case model.ModeConversation:
		out.Pool, out.Cursor, err = conversationPool(ctx, src.Conversations, req.Cursor, size)
	default:
		err = fmt.Errorf("unknown mode %d", req.Mode)
	}
	if len(out.Pool) > 0 {
		return out
	}

	if src.Phrases != nil {
		p, rerr := src.Phrases.RandomPhrase(ctx)
		if rerr == nil {
			out.Pool = []model.Phrase{p}
			out.Fallback = true
			return out
		}
		err = errors.Join(err, rerr)
	}
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrNoContent, err)
	} else {
		out.Err = ErrNoContent
	}
	return out
}

// Apply installs a fetched pool. Outcomes from superseded builds are
// discarded and reported as not applied.
func (m *Manager) Apply(out Outcome) (bool, error) {
	if out.Epoch != m.state.Epoch {
		return false, nil
	}
	if out.Err != nil {
		return false, out.Err
	}
	m.state.Cursors[out.Mode] = out.Cursor
	m.Load(out.Mode, out.Pool)
	m.SelectNext()
	return true, nil
}

// Initialize builds the pool for mode and selects its first phrase.
func (m *Manager) Initialize(ctx context.Context, mode model.Mode) error {
	_, err := m.Apply(Fetch(ctx, m.src, m.Prepare(mode)))
	return err
}

// Load replaces the pool and clears the used set without selecting.
func (m *Manager) Load(mode model.Mode, pool []model.Phrase) {
	m.state.Mode = mode
	m.state.Pool = append([]model.Phrase(nil), pool...)
	m.state.Used = map[string]struct{}{}
	m.state.Loaded = false
	m.state.Current = model.Phrase{}
	m.state.Blank = model.BlankPhrase{}
}

// SelectNext picks the first unused pool phrase in pool order, starting a
// new pass when every phrase was used.
func (m *Manager) SelectNext() (model.Phrase, bool) {
	if len(m.state.Pool) == 0 {
		return model.Phrase{}, false
	}
	next := -1
	for i, p := range m.state.Pool {
		if _, ok := m.state.Used[p.ID]; !ok {
			next = i
			break
		}
	}
	if next < 0 {
		m.state.Used = map[string]struct{}{}
		next = 0
	}
	p := m.state.Pool[next]
	m.state.Used[p.ID] = struct{}{}
	m.setCurrent(p)
	return p, true
}

// Skip moves on without a correct answer. Generative modes rebuild their
// pool instead of looping over the same content.
func (m *Manager) Skip(ctx context.Context) (model.Phrase, error) {
	if m.NeedsRefill() {
		if err := m.Initialize(ctx, m.state.Mode); err != nil {
			return model.Phrase{}, err
		}
		return m.state.Current, nil
	}
	p, ok := m.SelectNext()
	if !ok {
		return model.Phrase{}, ErrNoContent
	}
	return p, nil
}

// NeedsRefill reports whether a skip should rebuild the pool.
func (m *Manager) NeedsRefill() bool {
	return m.state.Mode.Generative() && m.Exhausted()
}

// NextPage moves curriculum mode to the following slice of phrases.
func (m *Manager) NextPage() Request {
	c := m.state.Cursors[model.ModeCurriculum]
	c.Page++
	m.state.Cursors[model.ModeCurriculum] = c
	return m.Prepare(model.ModeCurriculum)
}

// SetBlankCount changes the blank count and re-blanks the current phrase.
func (m *Manager) SetBlankCount(k int) {
	m.state.Blanks = blank.ClampCount(k)
	if m.state.Loaded {
		m.setCurrent(m.state.Current)
	}
}

// ApplyPhrase replaces the current phrase with a generated one if the
// ticket still refers to the current phrase.
func (m *Manager) ApplyPhrase(t Ticket, p model.Phrase) bool {
	if t.Epoch != m.state.Epoch || t.Turn != m.state.Turn {
		return false
	}
	m.setCurrent(p)
	return true
}

// Snapshot returns a copy of the session state.
func (m *Manager) Snapshot() State {
	s := m.state
	s.Pool = append([]model.Phrase(nil), m.state.Pool...)
	s.Used = make(map[string]struct{}, len(m.state.Used))
	for k := range m.state.Used {
		s.Used[k] = struct{}{}
	}
	s.Cursors = make(map[model.Mode]Cursor, len(m.state.Cursors))
	for k, v := range m.state.Cursors {
		s.Cursors[k] = v
	}
	return s
}

func (m *Manager) setCurrent(p model.Phrase) {
	m.state.Turn++
	m.state.Current = p
	m.state.Loaded = true
	m.state.Blank = blank.Build(p, m.state.Blanks, m.chooseIndices(p))
}

func (m *Manager) chooseIndices(p model.Phrase) []int {
	tokens := blank.Tokenize(p.KoreanText)
	switch {
	case m.state.Mode == model.ModeVerbPractice:
		return m.builder.ChooseVerbFirst(tokens, p.WordTypes, m.state.Blanks)
	case len(m.weak) > 0:
		return m.builder.ChooseWeighted(tokens, p.WordTypes, m.state.Blanks, m.weak, m.factor)
	default:
		return m.builder.Choose(tokens, p.WordTypes, m.state.Blanks)
	}
}
