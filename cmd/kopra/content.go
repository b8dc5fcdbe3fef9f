package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/kopra/internal/config"
	"github.com/verte-zerg/kopra/internal/generator"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/store"
	"github.com/verte-zerg/kopra/internal/wordlist"
)

const tagTimeout = 30 * time.Second

var (
	phraseGrammar string
	phraseNoTag   bool
	wordsLimit    int
)

func newPhrasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phrases",
		Short: "Manage curriculum phrases",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List phrases, newest first",
		Args:  cobra.NoArgs,
		RunE:  runPhrasesList,
	}
	addCmd := &cobra.Command{
		Use:   "add <korean> <english>",
		Short: "Add a phrase",
		Args:  cobra.ExactArgs(2),
		RunE:  runPhrasesAdd,
	}
	addCmd.Flags().StringVar(&phraseGrammar, "grammar", "", "grammar breakdown shown by explain")
	addCmd.Flags().BoolVar(&phraseNoTag, "no-tag", false, "skip part-of-speech tagging")
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a phrase",
		Args:  cobra.ExactArgs(1),
		RunE:  runPhrasesDelete,
	}
	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import phrases from YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runPhrasesImport,
	}
	importCmd.Flags().BoolVar(&phraseNoTag, "no-tag", false, "skip part-of-speech tagging")

	cmd.AddCommand(listCmd, addCmd, deleteCmd, importCmd)
	return cmd
}

func runPhrasesList(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	phrases, err := st.ListPhrases(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list phrases: %w", err)
	}
	if len(phrases) == 0 {
		logErrln("No phrases yet. Add one with: kopra phrases add <korean> <english>")
		return nil
	}
	rows := make([][]string, len(phrases))
	for i, p := range phrases {
		rows[i] = []string{
			p.ID,
			p.KoreanText,
			p.EnglishText,
			strconv.Itoa(p.TimesCorrect),
			strconv.Itoa(p.TimesIncorrect),
		}
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "Korean", "English", "Correct", "Incorrect"}, rows)
}

func runPhrasesAdd(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	p := model.Phrase{
		KoreanText:       args[0],
		EnglishText:      args[1],
		GrammarBreakdown: phraseGrammar,
	}
	tg := newTagger(st)
	tagPhrase(cmd.Context(), tg, &p)
	id, err := st.AddPhrase(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("failed to add phrase: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added phrase %d\n", id)
	return err
}

func runPhrasesDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid phrase id %q", args[0])
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.DeletePhrase(cmd.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("phrase %d not found", id)
		}
		return fmt.Errorf("failed to delete phrase: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted phrase %d\n", id)
	return err
}

func runPhrasesImport(cmd *cobra.Command, args []string) error {
	phrases, err := wordlist.LoadPhrases(args[0])
	if err != nil {
		return fmt.Errorf("failed to read phrases: %w", err)
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	tg := newTagger(st)
	for i := range phrases {
		p := phrases[i]
		tagPhrase(cmd.Context(), tg, &p)
		if _, err := st.AddPhrase(cmd.Context(), p); err != nil {
			return fmt.Errorf("phrase %d (%s): %w", i+1, p.KoreanText, err)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d phrases\n", len(phrases))
	return err
}

type tagger interface {
	TagWordTypes(ctx context.Context, korean string) ([]string, error)
}

// newTagger returns nil when tagging is disabled or no API key is set.
func newTagger(words generator.WordSource) tagger {
	if phraseNoTag {
		return nil
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil
	}
	if env.GroqAPIKey == "" {
		return nil
	}
	return newGenerator(env, fileCfg.Chat, words, zap.NewNop())
}

// tagPhrase labels the tokens of p so blanks avoid particles. Failures only
// warn; untagged phrases still practise with heuristics.
func tagPhrase(ctx context.Context, t tagger, p *model.Phrase) {
	if t == nil || len(p.WordTypes) > 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, tagTimeout)
	defer cancel()
	tags, err := t.TagWordTypes(ctx, p.KoreanText)
	if err != nil {
		logErrf("warning: could not tag %q: %v\n", p.KoreanText, err)
		return
	}
	p.WordTypes = tags
}

func newWordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage vocabulary",
	}
	types := make([]string, len(model.WordTypes))
	for i, t := range model.WordTypes {
		types[i] = string(t)
	}

	listCmd := &cobra.Command{
		Use:       "list <type>",
		Short:     "List words of a type (" + strings.Join(types, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: types,
		RunE:      runWordsList,
	}
	listCmd.Flags().IntVar(&wordsLimit, "limit", store.DefaultWordLimit, "maximum number of words")
	importCmd := &cobra.Command{
		Use:   "import <type> <file.tsv>",
		Short: "Import words from a korean<TAB>english[<TAB>romanization] file",
		Args:  cobra.ExactArgs(2),
		RunE:  runWordsImport,
	}
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Count words per type",
		Args:  cobra.NoArgs,
		RunE:  runWordsSummary,
	}

	cmd.AddCommand(listCmd, importCmd, summaryCmd)
	return cmd
}

func parseWordType(s string) (model.WordType, error) {
	t, ok := model.ParseWordType(s)
	if !ok {
		return "", fmt.Errorf("unknown word type %q", s)
	}
	return t, nil
}

func runWordsList(cmd *cobra.Command, args []string) error {
	t, err := parseWordType(args[0])
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	words, err := st.ListWordsByType(cmd.Context(), t, wordsLimit)
	if err != nil {
		return fmt.Errorf("failed to list words: %w", err)
	}
	if len(words) == 0 {
		logErrf("No %s words yet. Import some with: kopra words import %s <file.tsv>\n", t, t)
		return nil
	}
	rows := make([][]string, len(words))
	for i, w := range words {
		rows[i] = []string{
			w.Korean,
			w.English,
			w.Romanization,
			strconv.Itoa(w.TimesSeen),
			strconv.Itoa(w.TimesCorrect),
			wordFlags(w),
		}
	}
	return writeTable(cmd.OutOrStdout(), []string{"Korean", "English", "Romanization", "Seen", "Correct", "Tags"}, rows)
}

func wordFlags(w model.Word) string {
	var flags []string
	if w.IsFavorite {
		flags = append(flags, "favorite")
	}
	if w.IsLearning {
		flags = append(flags, "learning")
	}
	if w.IsLearned {
		flags = append(flags, "learned")
	}
	return strings.Join(flags, ",")
}

func runWordsImport(cmd *cobra.Command, args []string) error {
	t, err := parseWordType(args[0])
	if err != nil {
		return err
	}
	words, err := wordlist.LoadWords(args[1])
	if err != nil {
		return fmt.Errorf("failed to read words: %w", err)
	}
	words, dropped := wordlist.FilterHangul(words)
	if dropped > 0 {
		logErrf("Skipped %d entries without Hangul\n", dropped)
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	for _, w := range words {
		w.Type = t
		if _, err := st.SaveWord(cmd.Context(), w); err != nil {
			return fmt.Errorf("failed to save %s: %w", w.Korean, err)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s words\n", len(words), t)
	return err
}

func runWordsSummary(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	summary, err := st.WordSummary(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to summarize words: %w", err)
	}
	rows := make([][]string, 0, len(model.WordTypes))
	for _, t := range model.WordTypes {
		s := summary[t]
		rows = append(rows, []string{string(t), strconv.Itoa(s.Count), strconv.Itoa(s.TotalSeen)})
	}
	return writeTable(cmd.OutOrStdout(), []string{"Type", "Words", "Seen"}, rows)
}

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage conversation sets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List conversation sets",
			Args:  cobra.NoArgs,
			RunE:  runConversationsList,
		},
		&cobra.Command{
			Use:   "import <file.yaml>",
			Short: "Import conversation sets from YAML",
			Args:  cobra.ExactArgs(1),
			RunE:  runConversationsImport,
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a conversation set",
			Args:  cobra.ExactArgs(1),
			RunE:  runConversationsDelete,
		},
	)
	return cmd
}

func runConversationsList(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	sets, err := st.ListConversationSets(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(sets) == 0 {
		logErrln("No conversations yet. Import some with: kopra conversations import <file.yaml>")
		return nil
	}
	rows := make([][]string, len(sets))
	for i, set := range sets {
		rows[i] = []string{set.ID, set.Title, strconv.Itoa(len(set.Items))}
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "Title", "Items"}, rows)
}

func runConversationsImport(cmd *cobra.Command, args []string) error {
	sets, err := wordlist.LoadConversations(args[0])
	if err != nil {
		return fmt.Errorf("failed to read conversations: %w", err)
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	for _, set := range sets {
		saved, err := st.SaveConversationSet(cmd.Context(), set)
		if err != nil {
			return fmt.Errorf("failed to save %q: %w", set.Title, err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", saved.ID, saved.Title); err != nil {
			return err
		}
	}
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	if err := st.DeleteConversationSet(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("conversation %s not found", args[0])
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", args[0])
	return err
}

// writeTable aligns columns by terminal cell width so Hangul lines up.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range append([][]string{headers}, rows...) {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}
