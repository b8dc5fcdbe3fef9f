// Package tts fetches and caches spoken audio for sentences.
package tts

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults for the public translate endpoint.
const (
	DefaultBaseURL    = "https://translate.google.com/translate_tts"
	DefaultSilenceURL = "https://raw.githubusercontent.com/anars/blank-audio/master/1sec/mp3/1sec.mp3"
	DefaultLang       = "ko-KR"
	DefaultRate       = 1.0
	MaxBatchWords     = 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// ErrEmptyText is returned when there is nothing to synthesize.
var ErrEmptyText = errors.New("text is required")

// ErrNoWords is returned for a batch without words.
var ErrNoWords = errors.New("words array is required")

// Options configures a Client.
type Options struct {
	CacheDir   string
	BaseURL    string
	SilenceURL string
	Timeout    time.Duration
	// Pause between upstream requests of a batch.
	Pause  time.Duration
	Logger *zap.Logger
}

// Client fetches audio from the translate endpoint and caches it on disk.
type Client struct {
	cacheDir   string
	baseURL    string
	silenceURL string
	pause      time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	mu         sync.Mutex
}

// Request describes one utterance.
type Request struct {
	Text string  `json:"text"`
	Lang string  `json:"lang"`
	Rate float64 `json:"rate"`
}

// Result points at the cached audio file.
type Result struct {
	Path   string
	Cached bool
}

// NewClient creates the cache directory and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.CacheDir == "" {
		return nil, errors.New("tts cache dir is empty")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tts cache dir: %w", err)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SilenceURL == "" {
		opts.SilenceURL = DefaultSilenceURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		cacheDir:   opts.CacheDir,
		baseURL:    opts.BaseURL,
		silenceURL: opts.SilenceURL,
		pause:      opts.Pause,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     opts.Logger,
	}, nil
}

// LangCode maps a locale such as ko-KR to the short code the endpoint expects.
func LangCode(lang string) string {
	switch lang {
	case "ko-KR":
		return "ko"
	case "en-US":
		return "en"
	}
	code, _, _ := strings.Cut(lang, "-")
	return code
}

// CacheKey names the cached file for an utterance.
func CacheKey(text, lang string, rate float64) string {
	sum := md5.Sum([]byte(text + "_" + lang + "_" + strconv.FormatFloat(rate, 'f', -1, 64)))
	return hex.EncodeToString(sum[:])
}

func (r Request) withDefaults() Request {
	r.Text = strings.TrimSpace(r.Text)
	if r.Lang == "" {
		r.Lang = DefaultLang
	}
	if r.Rate <= 0 {
		r.Rate = DefaultRate
	}
	return r
}

// Synthesize returns the cached audio for the request, fetching it on a miss.
func (c *Client) Synthesize(ctx context.Context, req Request) (Result, error) {
	req = req.withDefaults()
	if req.Text == "" {
		return Result{}, ErrEmptyText
	}
	path := filepath.Join(c.cacheDir, CacheKey(req.Text, req.Lang, req.Rate)+".mp3")
	if fileExists(path) {
		c.logger.Debug("tts cache hit", zap.String("file", filepath.Base(path)))
		return Result{Path: path, Cached: true}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if fileExists(path) {
		return Result{Path: path, Cached: true}, nil
	}

	data, err := c.fetch(ctx, req.Text, LangCode(req.Lang))
	if err != nil {
		return Result{}, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return Result{}, err
	}
	c.logger.Info("tts saved", zap.String("file", filepath.Base(path)), zap.Int("bytes", len(data)))
	return Result{Path: path}, nil
}

func (c *Client) fetch(ctx context.Context, text, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("tl", lang)
	q.Set("client", "tw-ob")
	q.Set("q", text)
	return c.get(ctx, c.baseURL+"?"+q.Encode())
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("TTS API returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	return data, nil
}

// BatchWord is one entry of a batch recording.
type BatchWord struct {
	Korean  string `json:"korean"`
	English string `json:"english"`
}

// BatchRequest asks for one long recording of several words.
type BatchRequest struct {
	Words        []BatchWord `json:"words"`
	Lang         string      `json:"lang"`
	DelaySeconds *float64    `json:"delaySeconds"`
}

// Batch builds a single mp3 that, per word, asks for the English meaning,
// pauses, then says the Korean word.
func (c *Client) Batch(ctx context.Context, req BatchRequest) (Result, error) {
	if len(req.Words) == 0 {
		return Result{}, ErrNoWords
	}
	words := req.Words
	if len(words) > MaxBatchWords {
		words = words[:MaxBatchWords]
	}
	lang := req.Lang
	if lang == "" {
		lang = DefaultLang
	}
	delay := 2.0
	if req.DelaySeconds != nil {
		delay = *req.DelaySeconds
	}

	key, err := json.Marshal(struct {
		Words        []BatchWord `json:"words"`
		DelaySeconds float64     `json:"delaySeconds"`
	}{words, delay})
	if err != nil {
		return Result{}, fmt.Errorf("hash batch: %w", err)
	}
	sum := md5.Sum(key)
	path := filepath.Join(c.cacheDir, "batch_"+hex.EncodeToString(sum[:])+".mp3")
	if fileExists(path) {
		return Result{Path: path, Cached: true}, nil
	}

	var buf bytes.Buffer
	pauses := int(delay)
	if pauses < 0 {
		pauses = 0
	}
	for _, w := range words {
		korean := strings.TrimSpace(w.Korean)
		english := strings.TrimSpace(w.English)
		if korean == "" && english == "" {
			continue
		}
		if english != "" {
			prompt := fmt.Sprintf("How do you say %q?", english)
			if err := c.appendSegment(ctx, &buf, prompt, "en"); err != nil {
				return Result{}, fmt.Errorf("batch prompt for %q: %w", english, err)
			}
		}
		if pauses > 0 {
			silence, err := c.silence(ctx)
			if err != nil {
				return Result{}, fmt.Errorf("batch silence: %w", err)
			}
			for i := 0; i < pauses; i++ {
				buf.Write(silence)
			}
		}
		if korean != "" {
			if err := c.appendSegment(ctx, &buf, korean, LangCode(lang)); err != nil {
				return Result{}, fmt.Errorf("batch word %q: %w", korean, err)
			}
		}
	}
	if buf.Len() == 0 {
		return Result{}, errors.New("no audio generated for batch")
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return Result{}, err
	}
	c.logger.Info("tts batch saved", zap.String("file", filepath.Base(path)), zap.Int("words", len(words)))
	return Result{Path: path}, nil
}

// appendSegment fetches one utterance into buf. A batch is cached only when
// every segment arrived, so a failure aborts the whole recording.
func (c *Client) appendSegment(ctx context.Context, buf *bytes.Buffer, text, lang string) error {
	data, err := c.fetch(ctx, text, lang)
	if err != nil {
		c.logger.Warn("tts batch segment failed", zap.String("text", text), zap.Error(err))
		return err
	}
	buf.Write(data)
	return c.wait(ctx)
}

func (c *Client) silence(ctx context.Context) ([]byte, error) {
	path := filepath.Join(c.cacheDir, "silence_1s.mp3")
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}
	data, err := c.get(ctx, c.silenceURL)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.pause <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "tts-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create temp audio file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close audio: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to store audio: %w", err)
	}
	return nil
}
