package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdfchat-quiz/internal/config"
	"pdfchat-quiz/internal/llmservice"
	"pdfchat-quiz/internal/models"
)

// Embedder wraps a langchaingo embedder with a per request timeout and
// classifies failures into upstream errors.
type Embedder struct {
	inner   embeddings.Embedder
	timeout time.Duration
}

var _ embeddings.Embedder = (*Embedder)(nil)

// NewEmbedder creates a new embedder for the configured provider. Documents
// are sent in batches of batchSize texts.
func NewEmbedder(ctx context.Context, cfg config.LLMConfig, batchSize int) (*Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return Wrap(embedder, cfg.Timeout()), nil
}

func newClient(ctx context.Context, cfg config.LLMConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultEmbeddingModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
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
		return nil, &models.ConfigError{Field: "embed_llm.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}

// Wrap bounds every call of inner by timeout. A zero timeout disables the bound.
func Wrap(inner embeddings.Embedder, timeout time.Duration) *Embedder {
	return &Embedder{inner: inner, timeout: timeout}
}

// EmbedDocuments returns one vector per text, in input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := llmservice.WithTimeout(ctx, e.timeout)
	defer cancel()

	vectors, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, llmservice.ClassifyError(ctx, "embed documents", err)
	}
	if len(vectors) != len(texts) {
		return nil, &models.UpstreamError{
			Op:  "embed documents",
			Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)),
		}
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := llmservice.WithTimeout(ctx, e.timeout)
	defer cancel()

	vector, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, llmservice.ClassifyError(ctx, "embed query", err)
	}
	return vector, nil
}

// ChromemFunc adapts embedder to the function chromem-go calls for query text.
func ChromemFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}
