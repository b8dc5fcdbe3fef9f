package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/stats"
	"github.com/verte-zerg/kopra/internal/statsui"
)

const defaultCurveWords = 5

var (
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsMode        string
	statsWords       []string
	statsPlain       bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter (curriculum|verb|conversation)")
	cmd.Flags().StringSliceVar(&statsWords, "word", nil, "words for per-word curves")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfigFromFlags()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	words := cleanWords(statsWords)
	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return renderPlainStats(cmd, st, cfg, words)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg, words), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func statsConfigFromFlags() (model.StatsConfig, error) {
	if statsCurveWindow < 1 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be >= 1")
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg := model.StatsConfig{Last: statsLast, CurveWindow: statsCurveWindow}
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if mode := strings.TrimSpace(statsMode); mode != "" && mode != "any" {
		parsed, err := model.ParseMode(mode)
		if err != nil {
			return model.StatsConfig{}, err
		}
		cfg.Mode = parsed
	}
	return cfg, nil
}

func renderPlainStats(cmd *cobra.Command, src stats.Source, cfg model.StatsConfig, words []string) error {
	report, err := stats.BuildReport(cmd.Context(), src, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(report.Attempts) == 0 {
		_, err := fmt.Fprintln(out, "No attempts recorded yet.")
		return err
	}

	if err := stats.RenderSummary(out, report.Attempts); err != nil {
		return err
	}
	if err := section(out); err != nil {
		return err
	}
	if err := stats.RenderCurves(out, report.Attempts, cfg.CurveWindow); err != nil {
		return err
	}
	if err := section(out); err != nil {
		return err
	}
	if err := stats.RenderWordTable(out, stats.SortByAccuracy(report.WordAggsWindow)); err != nil {
		return err
	}

	if len(words) == 0 {
		words = stats.TopWordsByFrequency(report.WordAggsAll, defaultCurveWords)
	}
	if len(words) == 0 {
		return nil
	}
	perAttempt, err := report.WordCurves(cmd.Context(), src, words)
	if err != nil {
		return fmt.Errorf("failed to load word curves: %w", err)
	}
	if err := section(out); err != nil {
		return err
	}
	return stats.RenderWordCurves(out, report.Attempts, perAttempt, words, cfg.CurveWindow)
}

func section(w io.Writer) error {
	_, err := fmt.Fprintln(w)
	return err
}

func cleanWords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
