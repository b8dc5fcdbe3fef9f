// Package main provides the CLI entrypoint for kopra.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/kopra/internal/blank"
	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/config"
	"github.com/verte-zerg/kopra/internal/generator"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/speech"
	"github.com/verte-zerg/kopra/internal/store"
	"github.com/verte-zerg/kopra/internal/tts"
	"github.com/verte-zerg/kopra/internal/tui"
)

const (
	defaultBlanks      = 1
	defaultWeakTop     = 8
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 20
)

var (
	practiceMode       string
	practiceBlanks     int
	practiceMute       bool
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int
	practiceSeed       int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kopra",
		Short:         "Korean sentence practice in the terminal",
		Long:          "Korean sentence practice in the terminal.\n\nEnvironment:\n" + config.EnvUsage(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceMode, "mode", model.ModeCurriculum.String(), "practice mode: curriculum, verb or conversation")
	rootCmd.Flags().IntVar(&practiceBlanks, "blanks", defaultBlanks, "blanks per sentence (1-3)")
	rootCmd.Flags().BoolVar(&practiceMute, "mute", false, "start with speech muted")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias blanks toward weak words")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak words to focus on")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak words")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent attempts to compute weak words")
	rootCmd.Flags().Int64Var(&practiceSeed, "seed", 0, "random seed for blank selection (0 = time based)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPhrasesCmd())
	rootCmd.AddCommand(newWordsCmd())
	rootCmd.AddCommand(newConversationsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	st, err := store.Open(env.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	// The last blank count and mode chosen in the TUI apply unless a flag or
	// the config file names one.
	ctx := context.Background()
	if !cmd.Flags().Changed("blanks") && fileCfg.Practice.Blanks == nil {
		n, err := st.IntSetting(ctx, store.SettingPracticeBlanks, defaultBlanks, blank.MinBlanks, blank.MaxBlanks)
		if err != nil {
			logErrf("failed to read saved blank count: %v\n", err)
		} else {
			practiceBlanks = n
		}
	}
	if !cmd.Flags().Changed("mode") && fileCfg.Practice.Mode == nil {
		n, err := st.IntSetting(ctx, store.SettingPracticeMode, int(model.ModeCurriculum), int(model.ModeCurriculum), int(model.ModeConversation))
		if err != nil {
			logErrf("failed to read saved mode: %v\n", err)
		} else {
			practiceMode = model.Mode(n).String()
		}
	}
	applyStringConfig(cmd, "mode", &practiceMode, fileCfg.Practice.Mode)
	applyIntConfig(cmd, "blanks", &practiceBlanks, fileCfg.Practice.Blanks)
	applyBoolConfig(cmd, "mute", &practiceMute, fileCfg.Practice.Mute)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)

	mode, err := model.ParseMode(practiceMode)
	if err != nil {
		return fmt.Errorf("--mode: %w", err)
	}
	cfg := model.Config{
		Mode:       mode,
		Blanks:     practiceBlanks,
		Mute:       practiceMute,
		FocusWeak:  practiceFocusWeak,
		WeakTop:    practiceWeakTop,
		WeakFactor: practiceWeakFactor,
		WeakWindow: practiceWeakWindow,
		Seed:       practiceSeed,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	learnedAt := store.DefaultLearnedAt
	if v := fileCfg.Practice.LearnedAt; v != nil && *v > 0 {
		learnedAt = *v
	}

	speaker := newSpeaker(fileCfg, cfg.Mute)
	defer speaker.Stop()

	builder := blank.New()
	if cfg.Seed != 0 {
		builder = blank.NewWithSource(rand.NewSource(cfg.Seed))
	}
	opts := tui.Options{
		Config:    cfg,
		Store:     st,
		Speaker:   speaker,
		Builder:   builder,
		Generator: newGenerator(env, fileCfg.Chat, st, zap.NewNop()),
		LearnedAt: learnedAt,
	}

	program := tea.NewProgram(tui.NewModel(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// newSpeaker falls back to a silent sequencer when audio cannot be played;
// completion callbacks still fire so practice keeps advancing.
func newSpeaker(fileCfg config.FileConfig, muted bool) *speech.Sequencer {
	sc := fileCfg.Speech
	opts := []speech.Option{speech.WithMuted(muted)}
	if sc.Repeat != nil {
		opts = append(opts, speech.WithRepeat(*sc.Repeat))
	}
	gap, post := speech.DefaultGap, speech.DefaultPostDelay
	if sc.GapMs != nil {
		gap = time.Duration(*sc.GapMs) * time.Millisecond
	}
	if sc.PostDelayMs != nil {
		post = time.Duration(*sc.PostDelayMs) * time.Millisecond
	}
	opts = append(opts, speech.WithTiming(gap, post))

	client, err := newTTSClient(fileCfg.TTS, zap.NewNop())
	if err != nil {
		logErrf("speech disabled: %v\n", err)
		return speech.New(nil, opts...)
	}
	command := defaultAudioCommand()
	if sc.Command != nil {
		command = *sc.Command
	}
	lang, rate := tts.DefaultLang, tts.DefaultRate
	if sc.Lang != nil {
		lang = *sc.Lang
	}
	if sc.Rate != nil {
		rate = *sc.Rate
	}
	player, err := speech.NewAudioPlayer(client, lang, rate, command)
	if err != nil {
		logErrf("speech disabled: %v\n", err)
		return speech.New(nil, opts...)
	}
	return speech.New(player, opts...)
}

func defaultAudioCommand() string {
	if runtime.GOOS == "darwin" {
		return "afplay"
	}
	return "mpv --no-video --really-quiet"
}

func newTTSClient(tc config.TTSConfig, logger *zap.Logger) (*tts.Client, error) {
	opts := tts.Options{
		CacheDir: config.DefaultAudioCacheDir(),
		Pause:    100 * time.Millisecond,
		Logger:   logger,
	}
	if tc.CacheDir != nil {
		opts.CacheDir = *tc.CacheDir
	}
	if tc.BaseURL != nil {
		opts.BaseURL = *tc.BaseURL
	}
	if tc.SilenceURL != nil {
		opts.SilenceURL = *tc.SilenceURL
	}
	if tc.TimeoutSec != nil {
		opts.Timeout = time.Duration(*tc.TimeoutSec) * time.Second
	}
	return tts.NewClient(opts)
}

func newCompletionClient(env config.Env, cc config.ChatConfig, logger *zap.Logger) *completion.Client {
	opts := completion.Options{
		APIKey:      env.GroqAPIKey,
		Temperature: 0.7,
		MaxTokens:   512,
		Logger:      logger,
	}
	if cc.BaseURL != nil {
		opts.BaseURL = *cc.BaseURL
	}
	if cc.Model != nil {
		opts.Model = *cc.Model
	}
	if cc.Temperature != nil {
		opts.Temperature = float32(*cc.Temperature)
	}
	if cc.MaxTokens != nil {
		opts.MaxTokens = *cc.MaxTokens
	}
	if cc.TimeoutSec != nil {
		opts.Timeout = time.Duration(*cc.TimeoutSec) * time.Second
	}
	return completion.New(opts)
}

// newGenerator works offline without an API key: verb sentences are
// conjugated locally and the other requests report completion.ErrNoAPIKey.
func newGenerator(env config.Env, cc config.ChatConfig, words generator.WordSource, logger *zap.Logger) *generator.Generator {
	if env.GroqAPIKey == "" {
		return generator.New(nil, words)
	}
	return generator.New(newCompletionClient(env, cc, logger), words)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# kopra configuration
# Uncomment a value to enable it. CLI flags override config values.
# Secrets such as GROQ_API_KEY are read from the environment only.

[practice]
# mode = %q     # curriculum, verb or conversation
# blanks = %d                # Blanks per sentence (1-3)
# mute = false              # Start with speech muted
# focus-weak = false        # Bias blanks toward weak words
# weak-top = %d              # Number of weak words to focus on
# weak-factor = %.1f        # Weight factor for weak words
# weak-window = %d          # Number of recent attempts to compute weak words
# learned-at = %d           # First-try correct answers before a word counts as learned

[server]
# addr = ":5001"
# cors-origins = ["http://localhost:5173"]

[tts]
# cache-dir = %q
# base-url = %q
# silence-url = %q
# timeout = 15

[chat]
# base-url = %q
# model = %q
# temperature = 0.7
# max-tokens = 512
# timeout = 30

[speech]
# command = %q
# lang = %q
# rate = %.1f
# repeat = %d
# gap-ms = %d
# post-delay-ms = %d
`,
		model.ModeCurriculum.String(),
		defaultBlanks,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		store.DefaultLearnedAt,
		config.DefaultAudioCacheDir(),
		tts.DefaultBaseURL,
		tts.DefaultSilenceURL,
		completion.DefaultBaseURL,
		completion.DefaultModel,
		defaultAudioCommand(),
		tts.DefaultLang,
		tts.DefaultRate,
		speech.DefaultRepeat,
		speech.DefaultGap.Milliseconds(),
		speech.DefaultPostDelay.Milliseconds(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Blanks < blank.MinBlanks || cfg.Blanks > blank.MaxBlanks {
		return fmt.Errorf("--blanks must be between %d and %d", blank.MinBlanks, blank.MaxBlanks)
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	return nil
}

func openStore() (*store.Store, func(), error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(env.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func logErrf(format string, args ...any) {
	// Best-effort logging to stderr.
	_, _ = fmt.Fprintf(os.Stderr, format, args...)
}

func logErrln(args ...any) {
	_, _ = fmt.Fprintln(os.Stderr, args...)
}
