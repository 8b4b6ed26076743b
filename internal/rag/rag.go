package rag

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/prompts"

	"pdfchat-quiz/internal/llmservice"
	"pdfchat-quiz/internal/models"
)

const DefaultTemperature = 0.3

// Synthesizer answers a question from retrieved chunks only.
type Synthesizer struct {
	llm         llmservice.Generator
	temperature float64
	prompt      prompts.PromptTemplate
}

func NewSynthesizer(llm llmservice.Generator, temperature float64) *Synthesizer {
	return &Synthesizer{
		llm:         llm,
		temperature: temperature,
		prompt:      prompts.NewPromptTemplate(models.AnswerPromptTemplate, []string{"context", "question"}),
	}
}

// Answer asks the model to answer question using chunks as the only
// context. When the context does not contain the answer the model is told to
// reply with the not-in-context phrase, see NotInContext.
func (s *Synthesizer) Answer(ctx context.Context, question string, chunks []models.SearchResult) (string, error) {
	prompt, err := s.prompt.Format(map[string]any{
		"context":  BuildContext(chunks),
		"question": question,
	})
	if err != nil {
		return "", &models.SynthesisError{Err: err}
	}

	answer, err := s.llm.Generate(ctx, prompt, s.temperature)
	if err != nil {
		return "", &models.SynthesisError{Err: err}
	}
	return strings.TrimSpace(answer), nil
}

// BuildContext joins chunk texts in rank order, separated by blank lines.
func BuildContext(chunks []models.SearchResult) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	return strings.Join(texts, "\n\n")
}

// NotInContext reports whether answer is the model saying the documents do
// not contain the answer.
func NotInContext(answer string) bool {
	return strings.Contains(strings.ToLower(answer), models.NotInContext)
}

// RAG retrieves chunks for a query and synthesizes the answer from them.
type RAG struct {
	retriever   *Retriever
	synthesizer *Synthesizer
}

func NewRAG(retriever *Retriever, synthesizer *Synthesizer) *RAG {
	return &RAG{retriever: retriever, synthesizer: synthesizer}
}

func (r *RAG) Query(ctx context.Context, index Searcher, query string) (*models.PromptResponse, error) {
	sources, err := r.retriever.Search(ctx, index, query, 0)
	if err != nil {
		return nil, err
	}

	content, err := r.synthesizer.Answer(ctx, query, sources)
	if err != nil {
		return nil, err
	}
	if NotInContext(content) {
		log.Info().Str("query", query).Msg("Answer not found in documents")
	}

	return &models.PromptResponse{
		Query:   query,
		Sources: sources,
		Content: content,
	}, nil
}
