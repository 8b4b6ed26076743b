package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pdfchat-quiz/internal/config"
	"pdfchat-quiz/internal/llmservice"
	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/parser"
)

// QuizParser turns raw model output into questions.
type QuizParser interface {
	Parse(raw string) parser.QuizParseResult
}

// Generator asks the model for multiple-choice questions about a text.
type Generator struct {
	llm            llmservice.Generator
	parser         QuizParser
	temperature    float64
	maxSourceChars int
	defaultCount   int
}

func NewGenerator(llm llmservice.Generator, quizParser QuizParser, cfg config.QuizConfig) *Generator {
	return &Generator{
		llm:            llm,
		parser:         quizParser,
		temperature:    cfg.Temperature,
		maxSourceChars: cfg.MaxSourceChars,
		defaultCount:   cfg.DefaultCount,
	}
}

// Generate requests count questions of the given difficulty about
// sourceText. Only the first maxSourceChars characters are sent. Blocks the
// parser cannot use are dropped, so the quiz may hold fewer questions than
// requested; it never holds more.
func (g *Generator) Generate(ctx context.Context, sourceText string, count int, difficulty models.Difficulty) (*models.Quiz, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, models.ErrNoSourceText
	}
	if count <= 0 {
		count = g.defaultCount
	}
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	extract := Truncate(sourceText, g.maxSourceChars)
	prompt := fmt.Sprintf(models.QuizPromptTemplate, count, difficulty, extract)

	raw, err := g.llm.Generate(ctx, prompt, g.temperature)
	if err != nil {
		return nil, &models.GenerationError{Err: err}
	}

	result := g.parser.Parse(raw)
	questions := result.Questions
	if len(questions) > count {
		log.Debug().Int("parsed", len(questions)).Int("requested", count).Msg("Model returned extra questions")
		questions = questions[:count]
	}

	log.Info().
		Int("requested", count).
		Int("parsed", len(questions)).
		Int("dropped", len(result.Dropped)).
		Str("difficulty", string(difficulty)).
		Msg("Generated quiz")

	return &models.Quiz{
		Questions: questions,
		Requested: count,
		Dropped:   len(result.Dropped),
	}, nil
}

// Truncate returns the first limit characters of s. limit <= 0 disables it.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	// byte length bounds the rune count
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
