package session

import (
	"fmt"
	"path/filepath"

	"pdfchat-quiz/internal/helper"
	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/quiz"
)

// Session is the state of one user: the processed documents, the chat
// transcript and the quiz in progress. Only the index at IndexLocation
// outlives the process.
type Session struct {
	ID            string `json:"id"`
	IndexLocation string `json:"index_location"`

	Indexed        bool              `json:"indexed"`
	SourceText     string            `json:"-"`
	ProcessedFiles []string          `json:"processed_files"`
	TotalChunks    int               `json:"total_chunks"`
	Transcript     []models.Exchange `json:"transcript"`
	Quiz           *quiz.Session     `json:"quiz,omitempty"`
}

// New creates a session with a fresh id whose index lives under baseDir.
func New(baseDir string) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return Open(baseDir, id)
}

// Open returns the session id under baseDir. Indexed is set when an index
// was persisted there earlier; everything else starts empty. id must be a
// session UUID so the index location stays inside baseDir.
func Open(baseDir, id string) (*Session, error) {
	if !helper.IsUUID(id) {
		return nil, &models.ConfigError{Field: "session", Reason: fmt.Sprintf("invalid session id %q", id)}
	}
	location := filepath.Join(baseDir, id)
	return &Session{
		ID:            id,
		IndexLocation: location,
		Indexed:       helper.FolderExists(location),
	}, nil
}

// Reset forgets documents, transcript and quiz. The caller clears the index.
func (s *Session) Reset() {
	s.Indexed = false
	s.SourceText = ""
	s.ProcessedFiles = nil
	s.TotalChunks = 0
	s.Transcript = nil
	s.Quiz = nil
}
