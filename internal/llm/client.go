// Package llm wraps the Anthropic Messages API for the single-turn
// completions used by duplicate detection.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = anthropic.ModelClaudeHaiku4_5_20251001

var (
	// ErrAPIKeyRequired is returned when no API key is provided.
	ErrAPIKeyRequired = errors.New("anthropic API key required")

	// ErrNoTextContent is returned when the model answers without a text block.
	ErrNoTextContent = errors.New("response contained no text content")
)

// Config configures a Client.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint (proxies, tests).
	BaseURL string
	Model   string
	// Timeout bounds each request. Zero leaves the SDK default.
	Timeout time.Duration
	// Options are appended after the ones derived from the fields above.
	Options []option.RequestOption
}

// Client issues completions against one model.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or pass --anthropic-api-key", ErrAPIKeyRequired)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, cfg.Options...)

	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = DefaultModel
	}

	return &Client{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Model returns the model completions are sent to.
func (c *Client) Model() string { return string(c.model) }

// Complete sends prompt as a single user message and returns the text of
// the first text block in the reply.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int64) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrNoTextContent
}
