// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/stats"
)

const (
	tabOverview = iota
	tabWords
	tabWordCurves
)

const (
	plotHeight   = 10
	defaultWords = 5
	loadTimeout  = 10 * time.Second
)

// Filter form fields.
const (
	fieldMode = iota
	fieldSince
	fieldLast
	fieldWindow
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

var wordColumns = []table.Column{
	{Title: "Word", Width: 14},
	{Title: "Type", Width: 12},
	{Title: "Accuracy", Width: 9},
	{Title: "Correct", Width: 7},
	{Title: "Incorrect", Width: 9},
	{Title: "Total", Width: 6},
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	src stats.Source
	cfg model.StatsConfig

	report     stats.Report
	errMsg     string
	wordErrMsg string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	wordTable   table.Model
	tableLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	wordSelection       []string
	wordSelectionCustom bool
	wordPerAttempt      map[int64]map[string]model.WordAggregate

	wordInputMode bool
	wordInput     textinput.Model
}

type tableLayout struct {
	width  int
	height int
}

// NewModel constructs a stats UI model. words preselects the curve words;
// when empty the most practised words are shown.
func NewModel(src stats.Source, cfg model.StatsConfig, words []string) *Model {
	m := &Model{
		src:  src,
		cfg:  cfg,
		tabs: []string{"Overview", "Words", "Word Curves"},
	}
	m.wordSelection = parseWords(strings.Join(words, " "))
	m.wordSelectionCustom = len(m.wordSelection) > 0
	m.initInputs()
	m.wordInput = newFilterInput("Words: ")
	m.wordInput.Placeholder = "학교 친구 먹어요"
	m.wordTable = table.New(
		table.WithColumns(wordColumns),
		table.WithHeight(1),
	)
	m.wordTable.SetStyles(wordTableStyles())
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.wordInputMode {
			return m.updateWordInput(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabWordCurves {
				return m.startWordInput()
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabWords {
				m.wordTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabWords {
				m.wordTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabWords {
			m.wordTable, cmd = m.wordTable.Update(msg)
			return m, cmd
		}
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.wordInputMode {
		return fitLines(m.renderWordModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Mode (curriculum/verb/conversation): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	mode := ""
	if m.cfg.Mode != 0 {
		mode = m.cfg.Mode.String()
	}
	m.filterInputs[fieldMode].SetValue(mode)
	since := ""
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	m.filterInputs[fieldSince].SetValue(since)
	last := ""
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	m.filterInputs[fieldLast].SetValue(last)
	m.filterInputs[fieldWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.setTableSize(m.width, bodyHeight)
	for i := range m.filterInputs {
		m.filterInputs[i].Width = max(10, m.width-lipgloss.Width(m.filterInputs[i].Prompt)-2)
	}
	m.wordInput.Width = max(10, modalInnerWidth(m.width)-lipgloss.Width(m.wordInput.Prompt))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabWords {
		m.wordTable.Focus()
	} else {
		m.wordTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs(), m.width) + "\n" + padLines(m.renderFilterSummary(), m.width)
}

func (m *Model) renderFilterSummary() string {
	mode := "any"
	if m.cfg.Mode != 0 {
		mode = m.cfg.Mode.String()
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: mode=%s  since=%s  last=%s  window=%d", mode, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabWordCurves {
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Edit words: enter  Window: -/=  Settings: /  Quit: q"
	}
	help = headerStyle.Render(truncateLine(help, m.width))
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabWords {
		switch {
		case len(m.report.Attempts) == 0:
			return fitLines("No attempts found.", m.width, height)
		case len(m.report.WordAggsWindow) == 0:
			return fitLines("No word stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.wordTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	report, err := stats.BuildReport(ctx, m.src, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.renderTabContents()
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.wordSelectionCustom {
		m.wordSelection = stats.TopWordsByFrequency(m.report.WordAggsAll, defaultWords)
	}
	m.loadWordCurves()
	m.wordTable.SetRows(wordRows(m.report.WordAggsWindow))
	m.updateLayout()
	m.renderTabContents()
}

func (m *Model) loadWordCurves() {
	m.wordErrMsg = ""
	m.wordPerAttempt = nil
	if len(m.report.Attempts) == 0 || len(m.wordSelection) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	perAttempt, err := m.report.WordCurves(ctx, m.src, m.wordSelection)
	if err != nil {
		m.wordErrMsg = err.Error()
		return
	}
	m.wordPerAttempt = perAttempt
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Attempts, m.cfg.CurveWindow, width))
	m.viewports[tabWordCurves].SetContent(renderWordCurves(m.report.Attempts, m.wordSelection, m.wordPerAttempt, m.cfg.CurveWindow, width, m.wordErrMsg))
}

func renderOverview(attempts []model.AttemptAggregate, window, width int) string {
	if len(attempts) == 0 {
		return "No attempts found."
	}
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, attempts, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(renderSummaryCards(attempts, width)+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(attempts []model.AttemptAggregate, width int) string {
	t := stats.Summarize(attempts)
	cards := []string{
		metricCard("Attempts", strconv.Itoa(t.Attempts)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", t.AvgAccuracy*100)),
		metricCard("Perfect", strconv.Itoa(t.Perfect)),
		metricCard("Best Streak", strconv.Itoa(t.BestStreak)),
		metricCard("Sec/Blank", fmt.Sprintf("%.1f", t.AvgSecPerBlank)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func renderWordCurves(attempts []model.AttemptAggregate, words []string, perAttempt map[int64]map[string]model.WordAggregate, window, width int, errMsg string) string {
	if len(attempts) == 0 {
		return "No attempts found."
	}
	if errMsg != "" {
		return fmt.Sprintf("Failed to load word curves: %s", errMsg)
	}
	if len(words) == 0 {
		return "No words selected. Press Enter to choose words."
	}
	header := headerStyle.Render(truncateLine("Words: "+strings.Join(words, ", "), width))
	var buf bytes.Buffer
	if err := stats.RenderWordCurvesWithSize(&buf, attempts, perAttempt, words, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render word curves: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

// wordRows lists the weakest words first.
func wordRows(aggs []model.WordAggregate) []table.Row {
	sorted := stats.SortByAccuracy(aggs)
	rows := make([]table.Row, 0, len(sorted))
	for _, agg := range sorted {
		wordType := agg.WordType
		if wordType == "" {
			wordType = "-"
		}
		rows = append(rows, table.Row{
			agg.Word,
			wordType,
			fmt.Sprintf("%.1f%%", stats.WordAccuracy(agg)*100),
			strconv.Itoa(agg.Correct),
			strconv.Itoa(agg.Incorrect),
			strconv.Itoa(agg.Correct + agg.Incorrect),
		})
	}
	return rows
}

func wordTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) setTableSize(width, bodyHeight int) {
	height := max(1, bodyHeight-1)
	if m.tableLayout.width == width && m.tableLayout.height == height {
		return
	}
	m.tableLayout.width = width
	m.tableLayout.height = height
	m.wordTable.SetWidth(width)
	m.wordTable.SetHeight(height)
	// The header border takes rows the table height does not count.
	if extra := lipgloss.Height(m.wordTable.View()) - bodyHeight; extra > 0 {
		m.tableLayout.height = max(1, height-extra)
		m.wordTable.SetHeight(m.tableLayout.height)
	}
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := parseFilter(m.filterInputs)
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func parseFilter(inputs []textinput.Model) (model.StatsConfig, error) {
	var cfg model.StatsConfig
	if raw := strings.TrimSpace(inputs[fieldMode].Value()); raw != "" && raw != "any" {
		mode, err := model.ParseMode(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if raw := strings.TrimSpace(inputs[fieldSince].Value()); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return cfg, errors.New("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &parsed
	}
	if raw := strings.TrimSpace(inputs[fieldLast].Value()); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return cfg, errors.New("invalid last value (use 0 or positive integer)")
		}
		cfg.Last = parsed
	}
	if raw := strings.TrimSpace(inputs[fieldWindow].Value()); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return cfg, errors.New("invalid curve window (use integer >= 1)")
		}
		cfg.CurveWindow = parsed
	}
	return cfg, nil
}

func (m *Model) startWordInput() (tea.Model, tea.Cmd) {
	m.wordInputMode = true
	m.wordInput.SetValue(strings.Join(m.wordSelection, " "))
	return m, m.wordInput.Focus()
}

func (m *Model) updateWordInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.wordInputMode = false
		return m, nil
	case tea.KeyEnter:
		m.applyWordInput()
		m.wordInputMode = false
		m.loadWordCurves()
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.wordInput, cmd = m.wordInput.Update(msg)
	return m, cmd
}

// applyWordInput falls back to the most practised words on empty input.
func (m *Model) applyWordInput() {
	words := parseWords(m.wordInput.Value())
	if len(words) == 0 {
		m.wordSelectionCustom = false
		m.wordSelection = stats.TopWordsByFrequency(m.report.WordAggsAll, defaultWords)
		return
	}
	m.wordSelectionCustom = true
	m.wordSelection = words
}

func (m *Model) renderWordModal() string {
	body := []string{
		cardValueStyle.Render("Select Words"),
		m.wordInput.View(),
		headerStyle.Render("Separate words with spaces or commas. Empty resets to top words."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// parseWords splits on spaces and commas, dropping duplicates.
func parseWords(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	seen := map[string]struct{}{}
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func modalInnerWidth(width int) int {
	return max(10, modalWidth(width)-6) // 2 border + 4 padding
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		return line + strings.Repeat(" ", width-w)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// truncateLine shortens s to width terminal cells; Hangul takes two.
func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
