// Package completion talks to an OpenAI-compatible chat completion endpoint.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Defaults for the hosted endpoint.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

var (
	// ErrNoChoices is returned when the endpoint answers without a choice.
	ErrNoChoices = errors.New("completion returned no choices")
	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrNoAPIKey is returned when the client was built without a key.
	ErrNoAPIKey = errors.New("completion API key is not configured")
)

// Options configures a Client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Usage mirrors the token accounting of a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a single completion.
type Result struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
}

// Client sends single-prompt chat completions.
type Client struct {
	api         *openai.Client
	hasKey      bool
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// New builds a client. A missing key is reported on the first request so
// the rest of the application keeps working offline.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		hasKey:      opts.APIKey != "",
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     opts.Timeout,
		logger:      opts.Logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}
	if !c.hasKey {
		return Result{}, ErrNoAPIKey
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("completion failed", zap.String("model", c.model), zap.Error(err))
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, ErrNoChoices
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	c.logger.Debug("completion done",
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{
		Response: resp.Choices[0].Message.Content,
		Model:    model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
