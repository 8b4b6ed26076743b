package quiz

import (
	"fmt"
	"math"

	"pdfchat-quiz/internal/models"
)

// Unanswered marks a question the user has not answered yet.
const Unanswered = -1

// Session is a quiz being taken: the questions plus one selection each.
type Session struct {
	Questions []models.QuizQuestion `json:"questions"`
	Answers   []int                 `json:"answers"`
}

func NewSession(q *models.Quiz) *Session {
	s := &Session{Questions: q.Questions}
	s.Reset()
	return s
}

// Select records option as the answer to question. Selecting again
// overwrites the previous answer.
func (s *Session) Select(question, option int) error {
	if question < 0 || question >= len(s.Questions) || option < 0 || option >= models.OptionCount {
		return &models.AnswerRangeError{Question: question, Option: option}
	}
	s.Answers[question] = option
	return nil
}

// Reset marks every question unanswered.
func (s *Session) Reset() {
	s.Answers = make([]int, len(s.Questions))
	for i := range s.Answers {
		s.Answers[i] = Unanswered
	}
}

// QuestionResult is one line of the answer key. SelectedText is empty when
// the question was not answered.
type QuestionResult struct {
	Question     string `json:"question"`
	Selected     int    `json:"selected"`
	Correct      int    `json:"correct"`
	SelectedText string `json:"selected_text"`
	CorrectText  string `json:"correct_text"`
	IsCorrect    bool   `json:"is_correct"`
}

type Score struct {
	Correct    int              `json:"correct"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Results    []QuestionResult `json:"results"`
}

func (s Score) String() string {
	return fmt.Sprintf("%d%% (%d correct out of %d questions)", s.Percentage, s.Correct, s.Total)
}

// Grade compares every answer with the correct option. The percentage is
// rounded half to even and is 0 for an empty quiz.
func Grade(s *Session) Score {
	score := Score{Total: len(s.Questions)}
	for i, q := range s.Questions {
		selected := Unanswered
		if i < len(s.Answers) {
			selected = s.Answers[i]
		}
		result := QuestionResult{
			Question:    q.Question,
			Selected:    selected,
			Correct:     q.CorrectIndex,
			CorrectText: q.Options[q.CorrectIndex],
			IsCorrect:   selected == q.CorrectIndex,
		}
		if selected >= 0 && selected < models.OptionCount {
			result.SelectedText = q.Options[selected]
		}
		if result.IsCorrect {
			score.Correct++
		}
		score.Results = append(score.Results, result)
	}
	if score.Total > 0 {
		score.Percentage = int(math.RoundToEven(float64(score.Correct) / float64(score.Total) * 100))
	}
	return score
}
