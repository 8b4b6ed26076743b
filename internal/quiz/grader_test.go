package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat-quiz/internal/models"
)

func sessionWithKey(key ...int) *Session {
	q := &models.Quiz{}
	for _, correct := range key {
		q.Questions = append(q.Questions, models.QuizQuestion{
			Question:     "q",
			Options:      [4]string{"a", "b", "c", "d"},
			CorrectIndex: correct,
		})
	}
	return NewSession(q)
}

func TestNewSessionStartsUnanswered(t *testing.T) {
	s := sessionWithKey(0, 1, 2)
	assert.Equal(t, []int{Unanswered, Unanswered, Unanswered}, s.Answers)
}

func TestGrade(t *testing.T) {
	s := sessionWithKey(1, 2, 0)
	require.NoError(t, s.Select(0, 1))
	require.NoError(t, s.Select(1, 2))
	require.NoError(t, s.Select(2, 1))

	score := Grade(s)
	assert.Equal(t, 2, score.Correct)
	assert.Equal(t, 3, score.Total)
	assert.Equal(t, 67, score.Percentage)
	assert.Equal(t, "67% (2 correct out of 3 questions)", score.String())

	require.Len(t, score.Results, 3)
	assert.True(t, score.Results[0].IsCorrect)
	assert.False(t, score.Results[2].IsCorrect)
	assert.Equal(t, "b", score.Results[2].SelectedText)
	assert.Equal(t, "a", score.Results[2].CorrectText)
}

func TestGradeUnansweredIsNeverCorrect(t *testing.T) {
	s := sessionWithKey(0, 3)
	require.NoError(t, s.Select(1, 3))

	score := Grade(s)
	assert.Equal(t, 1, score.Correct)
	assert.Equal(t, 50, score.Percentage)
	assert.Equal(t, Unanswered, score.Results[0].Selected)
	assert.Empty(t, score.Results[0].SelectedText)
}

func TestGradeEmptyQuiz(t *testing.T) {
	score := Grade(sessionWithKey())
	assert.Zero(t, score.Total)
	assert.Zero(t, score.Percentage)
}

func TestGradeRoundsHalfToEven(t *testing.T) {
	// 1/8 = 12.5% and 3/8 = 37.5%
	s := sessionWithKey(0, 0, 0, 0, 0, 0, 0, 0)
	require.NoError(t, s.Select(0, 0))
	assert.Equal(t, 12, Grade(s).Percentage)

	require.NoError(t, s.Select(1, 0))
	require.NoError(t, s.Select(2, 0))
	assert.Equal(t, 38, Grade(s).Percentage)
}

func TestSelect(t *testing.T) {
	s := sessionWithKey(0, 1)
	require.NoError(t, s.Select(0, 2))
	require.NoError(t, s.Select(0, 3))
	assert.Equal(t, 3, s.Answers[0], "a later selection overwrites")

	for _, tt := range []struct{ question, option int }{{-1, 0}, {2, 0}, {0, -1}, {0, 4}} {
		err := s.Select(tt.question, tt.option)
		var rangeErr *models.AnswerRangeError
		assert.True(t, errors.As(err, &rangeErr), "question %d option %d", tt.question, tt.option)
	}
}

func TestReset(t *testing.T) {
	s := sessionWithKey(0, 1)
	require.NoError(t, s.Select(0, 0))
	s.Reset()
	assert.Equal(t, []int{Unanswered, Unanswered}, s.Answers)
}
