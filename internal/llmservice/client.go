package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdfchat-quiz/internal/config"
	"pdfchat-quiz/internal/models"
)

// Generator produces text for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Client is a Generator backed by a langchaingo model. Every request is
// bounded by the configured timeout.
type Client struct {
	llm     llms.Model
	model   string
	timeout time.Duration
}

// NewModel creates the langchaingo model for the configured provider.
func NewModel(ctx context.Context, cfg config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Str("base_url", cfg.BaseURL).Msg("Creating LLM client")

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, &models.ConfigError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}

func NewClient(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	llm, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return NewClientFromModel(llm, cfg.Model, cfg.Timeout()), nil
}

// NewClientFromModel wraps an existing model, e.g. a fake in tests.
func NewClientFromModel(llm llms.Model, model string, timeout time.Duration) *Client {
	return &Client{llm: llm, model: model, timeout: timeout}
}

// GenerateContent sends messages to the model under the client timeout.
// Failures are classified into upstream errors.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	ctx, cancel := WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.llm.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, ClassifyError(ctx, "generate", err)
	}
	return res, nil
}

// Generate sends prompt as a single human message and returns the text of the
// first choice. An empty completion is an upstream failure.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	log.Debug().Str("model", c.model).Float64("temperature", temperature).Int("prompt_chars", len(prompt)).Msg("Generating content")

	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	res, err := c.GenerateContent(ctx, msgContent, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Content) == "" {
		return "", &models.UpstreamError{Op: "generate", Err: errors.New("empty response from model")}
	}
	return res.Choices[0].Content, nil
}
