// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/kopra/internal/answer"
	"github.com/verte-zerg/kopra/internal/blank"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/session"
	statsPkg "github.com/verte-zerg/kopra/internal/stats"
	"github.com/verte-zerg/kopra/internal/store"
)

// Store is the persistence the practice UI reads and writes.
type Store interface {
	session.PhraseSource
	session.ConversationSource
	answer.Reporter
	InsertAttempt(ctx context.Context, attempt model.Attempt, blanks []model.BlankStats) (int64, error)
	ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error)
	IncrementWordCorrect(ctx context.Context, korean string) (int64, error)
	EnforceLearnedThreshold(ctx context.Context, korean string, threshold int) (int64, error)
	GetWeakWords(ctx context.Context, window int, mode model.Mode) ([]model.WordAggregate, error)
	SetIntSetting(ctx context.Context, key string, value int) error
	ListWordsByType(ctx context.Context, t model.WordType, limit int) ([]model.Word, error)
}

// Generator produces sentences through the completion endpoint.
type Generator interface {
	session.SentenceGenerator
	Variation(ctx context.Context, p model.Phrase, wordsByType map[string][]string) (model.Phrase, error)
	Remix(ctx context.Context, p model.Phrase) (model.Phrase, error)
	Explain(ctx context.Context, p model.Phrase) (string, error)
}

// Speaker plays the revealed sentence. *speech.Sequencer implements it.
type Speaker interface {
	Speak(text string, onDone func())
	Stop()
	SetMuted(muted bool)
	Muted() bool
}

// Options wires the practice UI. Generator is optional; without it only
// stored content is practised.
type Options struct {
	Config    model.Config
	Store     Store
	Generator Generator
	Speaker   Speaker
	Builder   *blank.Builder
	LearnedAt int
}

var errNoGenerator = errors.New("sentence generation needs GROQ_API_KEY")

// Model implements the Bubble Tea practice UI.
type Model struct {
	config    model.Config
	store     Store
	gen       Generator
	speaker   Speaker
	sources   session.Sources
	manager   *session.Manager
	learnedAt int

	width  int
	height int

	input     textinput.Model
	checker   *answer.Checker
	phrase    model.Phrase
	misses    []int
	startedAt time.Time
	revealed  bool

	loading     string
	banner      string
	notice      string
	explanation string

	speechDone chan session.Ticket
	now        func() time.Time

	allBlanks   int
	allMistakes int
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	filledStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = currentWordStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	explainStyle     = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B8B8B8")).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A")).
				Padding(0, 1)
)

// NewModel constructs a practice TUI model.
func NewModel(opts Options) *Model {
	if opts.LearnedAt <= 0 {
		opts.LearnedAt = store.DefaultLearnedAt
	}
	m := &Model{
		config:     opts.Config,
		store:      opts.Store,
		gen:        opts.Generator,
		speaker:    opts.Speaker,
		learnedAt:  opts.LearnedAt,
		speechDone: make(chan session.Ticket, 1),
		now:        time.Now,
	}
	m.sources = session.Sources{Phrases: opts.Store, Conversations: opts.Store}
	if opts.Generator != nil {
		m.sources.Sentences = opts.Generator
	}
	m.manager = session.New(m.sources, opts.Builder, opts.Config.Blanks)

	m.input = textinput.New()
	m.input.Prompt = "› "
	m.input.Focus()

	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	start := m.fetch(m.manager.Prepare(m.initialMode()))
	if m.config.FocusWeak {
		start = tea.Sequence(loadWeak(m.store, m.config.WeakWindow), start)
	}
	return tea.Batch(start, waitSpeech(m.speechDone), textinput.Blink)
}

func (m *Model) initialMode() model.Mode {
	for _, mode := range model.Modes {
		if mode == m.config.Mode {
			return mode
		}
	}
	return model.ModeCurriculum
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, m.contentWidth()-4)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case poolMsg:
		return m, m.handlePool(msg.out)
	case phraseMsg:
		m.loading = ""
		if msg.err != nil {
			m.banner = msg.err.Error()
			return m, nil
		}
		if m.manager.ApplyPhrase(msg.ticket, msg.phrase) {
			m.speaker.Stop()
			m.startPhrase()
		}
		return m, nil
	case explainMsg:
		m.loading = ""
		if msg.ticket != m.manager.Ticket() {
			return m, nil
		}
		if msg.err != nil {
			m.banner = msg.err.Error()
			return m, nil
		}
		m.explanation = strings.TrimSpace(msg.text)
		return m, nil
	case recordedMsg:
		m.allBlanks += msg.attempt.Blanks
		m.allMistakes += msg.attempt.Mistakes
		if msg.err != nil {
			m.banner = msg.err.Error()
		}
		if m.config.FocusWeak {
			return m, loadWeak(m.store, m.config.WeakWindow)
		}
		return m, nil
	case weakMsg:
		if msg.err != nil {
			m.banner = fmt.Sprintf("load weak words: %v", msg.err)
			return m, nil
		}
		m.manager.SetWeakWords(statsPkg.SelectWeakWords(msg.aggs, m.config.WeakTop), m.config.WeakFactor)
		return m, nil
	case speechDoneMsg:
		next := waitSpeech(m.speechDone)
		if !m.revealed || msg.ticket != m.manager.Ticket() {
			return m, next
		}
		return m, tea.Batch(next, m.next())
	case errMsg:
		m.banner = msg.err.Error()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.speaker.Stop()
		return m, tea.Quit
	case tea.KeyEsc:
		m.banner = ""
		m.explanation = ""
		return m, nil
	case tea.KeyCtrlT:
		m.speaker.SetMuted(!m.speaker.Muted())
		return m, nil
	case tea.KeyCtrlN:
		return m, m.switchMode(m.manager.Mode().Next())
	case tea.KeyCtrlB:
		return m, m.cycleBlanks()
	case tea.KeyCtrlP:
		if m.manager.Mode() != model.ModeCurriculum {
			m.notice = "Pages only apply to curriculum mode"
			return m, nil
		}
		m.speaker.Stop()
		return m, m.fetch(m.manager.NextPage())
	case tea.KeyTab:
		m.speaker.Stop()
		return m, m.skip()
	case tea.KeyCtrlR:
		return m, m.regenerate("Remixing…", func(ctx context.Context, p model.Phrase) (model.Phrase, error) {
			return m.gen.Remix(ctx, p)
		})
	case tea.KeyCtrlG:
		st := m.store
		return m, m.regenerate("Generating variation…", func(ctx context.Context, p model.Phrase) (model.Phrase, error) {
			words, err := wordsByType(ctx, st)
			if err != nil {
				return model.Phrase{}, err
			}
			return m.gen.Variation(ctx, p, words)
		})
	case tea.KeyCtrlE:
		return m, m.explain()
	case tea.KeyUp, tea.KeyShiftTab:
		m.moveBlank(-1)
		return m, nil
	case tea.KeyDown:
		m.moveBlank(1)
		return m, nil
	case tea.KeyEnter:
		return m, m.submit()
	}
	if m.revealed || m.checker == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) fetch(req session.Request) tea.Cmd {
	m.loading = fmt.Sprintf("Loading %s…", req.Mode)
	return fetchPool(m.sources, req)
}

func (m *Model) handlePool(out session.Outcome) tea.Cmd {
	applied, err := m.manager.Apply(out)
	if !applied && err == nil {
		return nil
	}
	m.loading = ""
	if err != nil {
		m.banner = err.Error()
		return nil
	}
	m.notice = ""
	if out.Fallback {
		m.notice = fmt.Sprintf("No %s content yet; showing a curriculum phrase", out.Mode)
	}
	m.startPhrase()
	return nil
}

func (m *Model) startPhrase() {
	p, bp, ok := m.manager.Current()
	if !ok {
		m.checker = nil
		return
	}
	m.phrase = p
	m.checker = answer.NewChecker(bp)
	m.misses = make([]int, len(bp.Blanks))
	m.startedAt = m.now()
	m.revealed = false
	m.explanation = ""
	m.input.Reset()
	m.input.Placeholder = ""
	m.input.Focus()
}

// skip leaves the current phrase unanswered. Exhausted generative pools are
// rebuilt instead of looped.
func (m *Model) skip() tea.Cmd {
	if m.manager.NeedsRefill() {
		return m.fetch(m.manager.Prepare(m.manager.Mode()))
	}
	return m.next()
}

// next moves to the first unused pool phrase, starting the pool over once
// every phrase has been used.
func (m *Model) next() tea.Cmd {
	if _, ok := m.manager.SelectNext(); !ok {
		return m.fetch(m.manager.Prepare(m.manager.Mode()))
	}
	m.notice = ""
	m.startPhrase()
	return nil
}

func (m *Model) switchMode(mode model.Mode) tea.Cmd {
	m.speaker.Stop()
	m.notice = ""
	return tea.Batch(
		m.fetch(m.manager.Prepare(mode)),
		saveSetting(m.store, store.SettingPracticeMode, int(mode)),
	)
}

func (m *Model) cycleBlanks() tea.Cmd {
	k := m.manager.Blanks()%blank.MaxBlanks + 1
	m.manager.SetBlankCount(k)
	m.speaker.Stop()
	m.startPhrase()
	return saveSetting(m.store, store.SettingPracticeBlanks, k)
}

func (m *Model) regenerate(status string, fn func(ctx context.Context, p model.Phrase) (model.Phrase, error)) tea.Cmd {
	if m.checker == nil {
		return nil
	}
	if m.gen == nil {
		m.banner = errNoGenerator.Error()
		return nil
	}
	m.loading = status
	p := m.phrase
	return generate(m.manager.Ticket(), func(ctx context.Context) (model.Phrase, error) {
		return fn(ctx, p)
	})
}

func (m *Model) explain() tea.Cmd {
	if m.checker == nil {
		return nil
	}
	if text := strings.TrimSpace(m.phrase.GrammarBreakdown); text != "" {
		m.explanation = text
		return nil
	}
	if m.gen == nil {
		m.banner = errNoGenerator.Error()
		return nil
	}
	m.loading = "Explaining…"
	return explain(m.gen, m.manager.Ticket(), m.phrase)
}

// moveBlank stores the typed value and focuses a neighbouring blank so an
// earlier answer can be corrected.
func (m *Model) moveBlank(delta int) {
	if m.checker == nil || m.revealed {
		return
	}
	cur := m.checker.Current()
	m.checker.Edit(cur, m.input.Value())
	if !m.checker.Focus(cur + delta) {
		return
	}
	m.input.SetValue(m.checker.Value(m.checker.Current()))
	m.input.Placeholder = m.checker.Hint(m.checker.Current())
}

func (m *Model) submit() tea.Cmd {
	if m.checker == nil || m.revealed {
		return nil
	}
	res := m.checker.Submit(m.input.Value())
	switch res.Outcome {
	case answer.Advance:
		m.notice = ""
		m.input.SetValue(m.checker.Value(res.Next))
		m.input.Placeholder = m.checker.Hint(res.Next)
	case answer.Stale:
		m.notice = fmt.Sprintf("Blank %d no longer matches", res.Next+1)
		m.input.SetValue(m.checker.Value(res.Next))
		m.input.Placeholder = m.checker.Hint(res.Next)
	case answer.Incorrect:
		m.misses[res.Blank]++
		m.notice = incorrectStyle.Render("Incorrect")
		m.input.Reset()
		m.input.Placeholder = res.Expected
		return reportIncorrect(m.store, m.phrase)
	case answer.Complete:
		return m.complete()
	}
	return nil
}

func (m *Model) complete() tea.Cmd {
	m.revealed = true
	m.notice = ""
	m.input.Blur()
	bp := m.checker.Phrase()
	ended := m.now()
	rec := completion{
		phrase: m.phrase,
		blank:  bp,
		misses: append([]int(nil), m.misses...),
		attempt: model.Attempt{
			StartedAt:  m.startedAt,
			EndedAt:    ended,
			Mode:       m.manager.Mode(),
			PhraseID:   m.phrase.ID,
			Blanks:     len(bp.Blanks),
			Mistakes:   m.checker.Mistakes(),
			DurationMs: ended.Sub(m.startedAt).Milliseconds(),
		},
		learnedAt: m.learnedAt,
	}

	ticket := m.manager.Ticket()
	done := m.speechDone
	m.speaker.Speak(strings.Join(blank.Restore(bp), " "), func() {
		select {
		case done <- ticket:
		default:
		}
	})
	return recordCompletion(m.store, rec)
}

func (m *Model) loadFooterStats() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	attempts, err := m.store.ListAttempts(ctx, model.StatsConfig{})
	if err != nil {
		m.banner = fmt.Sprintf("load stats: %v", err)
		return
	}
	for _, a := range attempts {
		m.allBlanks += a.Blanks
		m.allMistakes += a.Mistakes
	}
}

func (m *Model) contentWidth() int {
	return max(1, int(float64(m.width)*0.70))
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.contentWidth()
	if m.width == 0 {
		width = 0
	}
	var parts []string
	if m.banner != "" {
		parts = append(parts, incorrectStyle.Render(m.banner), "")
	}
	if m.checker != nil {
		words := buildStyledWords(m.checker.Phrase(), m.checker, m.input.Value(), m.revealed)
		parts = append(parts, wrapStyledWords(words, width), "")
		parts = append(parts, pendingStyle.Render(m.phrase.EnglishText))
		if !m.revealed {
			parts = append(parts, "", m.input.View())
		}
	} else if m.loading == "" {
		parts = append(parts, pendingStyle.Render("No phrase loaded. Ctrl+N switches mode."))
	}
	if m.loading != "" {
		parts = append(parts, "", pendingStyle.Render(m.loading))
	}
	if m.notice != "" {
		parts = append(parts, "", m.notice)
	}
	if m.explanation != "" {
		box := explainStyle
		if width > 0 {
			box = box.Width(width)
		}
		parts = append(parts, "", box.Render(m.explanation))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	content = lipgloss.NewStyle().Width(width).Render(content)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFooter() string {
	used, total := m.manager.Progress()
	segments := []string{
		fmt.Sprintf("Mode %s", m.manager.Mode()),
		fmt.Sprintf("Blanks %d", m.manager.Blanks()),
	}
	if total > 0 {
		segments = append(segments, fmt.Sprintf("Item %d of %d", used, total))
	}
	acc, _ := statsPkg.AttemptMetrics(m.allBlanks, m.allMistakes, 0)
	segments = append(segments, fmt.Sprintf("All-time %.1f%%", acc*100))
	if m.speaker.Muted() {
		segments = append(segments, "Muted")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
