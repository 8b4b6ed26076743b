package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat-quiz/internal/config"
	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/parser"
	"pdfchat-quiz/internal/testutil"
)

func quizConfig() config.QuizConfig {
	return config.Default().Quiz
}

func templateBlock(n int) string {
	return fmt.Sprintf("Q%d: Question %d?\nA) one\nB) two\nC) *three\nD) four", n, n)
}

func newGenerator(llm *testutil.FakeGenerator, cfg config.QuizConfig) *Generator {
	return NewGenerator(llm, parser.NewTemplateQuizParser(parser.UnmarkedReject, nil), cfg)
}

func TestGenerate(t *testing.T) {
	llm := &testutil.FakeGenerator{Response: templateBlock(1) + "\n\n" + templateBlock(2)}

	q, err := newGenerator(llm, quizConfig()).Generate(context.Background(), "Some document text", 2, models.DifficultyHard)
	require.NoError(t, err)
	require.Len(t, q.Questions, 2)
	assert.Equal(t, 2, q.Requested)
	assert.Zero(t, q.Dropped)
	assert.Equal(t, 2, q.Questions[1].CorrectIndex)

	prompt := llm.Prompts[0]
	assert.Contains(t, prompt, "Generate 2 multiple-choice questions")
	assert.Contains(t, prompt, "Difficulty level: Hard")
	assert.Contains(t, prompt, "Some document text")
	assert.Equal(t, []float64{0.7}, llm.Temperatures)
}

func TestGenerateFewerQuestionsThanRequested(t *testing.T) {
	llm := &testutil.FakeGenerator{Response: templateBlock(1) + "\n\nQ2: broken\nA) only one option"}

	q, err := newGenerator(llm, quizConfig()).Generate(context.Background(), "text", 5, models.DifficultyEasy)
	require.NoError(t, err)
	assert.Len(t, q.Questions, 1)
	assert.Equal(t, 5, q.Requested)
	assert.Equal(t, 1, q.Dropped)
}

func TestGenerateCapsExtraQuestions(t *testing.T) {
	llm := &testutil.FakeGenerator{Response: templateBlock(1) + "\n\n" + templateBlock(2) + "\n\n" + templateBlock(3)}

	q, err := newGenerator(llm, quizConfig()).Generate(context.Background(), "text", 2, models.DifficultyMedium)
	require.NoError(t, err)
	assert.Len(t, q.Questions, 2)
}

func TestGenerateDefaults(t *testing.T) {
	llm := &testutil.FakeGenerator{Response: templateBlock(1)}

	q, err := newGenerator(llm, quizConfig()).Generate(context.Background(), "text", 0, "")
	require.NoError(t, err)
	assert.Equal(t, 5, q.Requested)
	assert.Contains(t, llm.Prompts[0], "Difficulty level: Medium")
}

func TestGenerateTruncatesSource(t *testing.T) {
	cfg := quizConfig()
	cfg.MaxSourceChars = 10
	llm := &testutil.FakeGenerator{Response: templateBlock(1)}

	_, err := newGenerator(llm, cfg).Generate(context.Background(), "0123456789TAIL", 1, models.DifficultyMedium)
	require.NoError(t, err)
	assert.Contains(t, llm.Prompts[0], "0123456789")
	assert.NotContains(t, llm.Prompts[0], "TAIL")
}

func TestGenerateWithoutSourceText(t *testing.T) {
	llm := &testutil.FakeGenerator{}
	_, err := newGenerator(llm, quizConfig()).Generate(context.Background(), " \n\t", 3, models.DifficultyMedium)
	assert.ErrorIs(t, err, models.ErrNoSourceText)
	assert.Zero(t, llm.Calls())
}

func TestGenerateUpstreamFailure(t *testing.T) {
	cause := &models.UpstreamError{Op: "generate", Err: errors.New("503")}
	_, err := newGenerator(&testutil.FakeGenerator{Err: cause}, quizConfig()).
		Generate(context.Background(), "text", 3, models.DifficultyMedium)

	var genErr *models.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.ErrorIs(t, err, cause)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "éé", Truncate("ééé", 2))
	assert.Equal(t, "ééé", Truncate("ééé", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Equal(t, 50000, len([]rune(Truncate(strings.Repeat("ü", 60000), 50000))))
}
