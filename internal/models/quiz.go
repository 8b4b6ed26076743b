package models

import (
	"fmt"
	"strings"
)

const OptionCount = 4

// QuizQuestion is one validated multiple-choice question
type QuizQuestion struct {
	Question     string              `json:"question"`
	Options      [OptionCount]string `json:"options"`
	CorrectIndex int                 `json:"correct_index"`
}

// Quiz is the result of one generation request. Requested is what was asked
// of the model, len(Questions) is what survived parsing.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
	Requested int            `json:"requested"`
	Dropped   int            `json:"dropped"`
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts the three levels case-insensitively. Empty input
// maps to Medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DifficultyMedium, nil
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", &ConfigError{Field: "difficulty", Reason: fmt.Sprintf("unknown level %q", s)}
}
