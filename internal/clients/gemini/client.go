// Package gemini provides a free-text completion client for the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 10 * time.Second
)

// ErrNoContent is returned when the model produced no text
var ErrNoContent = errors.New("no content generated")

// Client turns prompts into text via Gemini
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// Config holds the client settings. BaseURL is only set in tests.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	genaiClient, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:  genaiClient,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log.With().Str("client", "gemini").Logger(),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	return c, nil
}

// Complete sends the prompt and returns the concatenated text of the first candidate.
// The call is bounded by the configured timeout.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractText(result)
	if err != nil {
		return "", err
	}

	c.log.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Int("chars", len(text)).
		Msg("Completion generated")

	return text, nil
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	if sb.Len() == 0 {
		return "", ErrNoContent
	}
	return sb.String(), nil
}

// Disabled is the completion service used when no API key is configured.
// Every call fails so callers fall back to their canned reply.
type Disabled struct{}

// Complete always fails
func (Disabled) Complete(context.Context, string) (string, error) {
	return "", errors.New("completion service not configured")
}
