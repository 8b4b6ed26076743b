package assistant

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdfchat-quiz/internal/chromemdb"
	"pdfchat-quiz/internal/config"
	"pdfchat-quiz/internal/embedding"
	"pdfchat-quiz/internal/llmservice"
	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/parser"
	"pdfchat-quiz/internal/quiz"
	"pdfchat-quiz/internal/rag"
	"pdfchat-quiz/internal/session"
)

// Deps are the collaborators of an Assistant.
type Deps struct {
	Extractor  parser.Extractor
	Chunker    *parser.Chunker
	Store      *chromemdb.VectorDBManager
	Embedder   embeddings.Embedder
	LLM        llmservice.Generator
	QuizParser quiz.QuizParser
}

// Assistant runs the user actions against an explicit session. A failed
// action leaves the session as it was.
type Assistant struct {
	cfg       *config.Config
	extractor parser.Extractor
	chunker   *parser.Chunker
	store     *chromemdb.VectorDBManager
	embedder  embeddings.Embedder
	rag       *rag.RAG
	generator *quiz.Generator
}

func New(cfg *config.Config, deps Deps) *Assistant {
	return &Assistant{
		cfg:       cfg,
		extractor: deps.Extractor,
		chunker:   deps.Chunker,
		store:     deps.Store,
		embedder:  deps.Embedder,
		rag: rag.NewRAG(
			rag.NewRetriever(cfg.RAG.TopK),
			rag.NewSynthesizer(deps.LLM, cfg.Answer.Temperature),
		),
		generator: quiz.NewGenerator(deps.LLM, deps.QuizParser, cfg.Quiz),
	}
}

// NewFromConfig creates the model clients and the index store described by cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Assistant, error) {
	chunker, err := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewEmbedder(ctx, cfg.EmbedLLM, cfg.RAG.EmbedBatchSize)
	if err != nil {
		return nil, err
	}
	llm, err := llmservice.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	return New(cfg, Deps{
		Extractor:  parser.NewExtractor(),
		Chunker:    chunker,
		Store:      chromemdb.NewVectorDBManager(cfg.RAG.CollectionName, cfg.RAG.Compress),
		Embedder:   embedder,
		LLM:        llm,
		QuizParser: parser.NewTemplateQuizParser(parser.UnmarkedPolicy(cfg.Quiz.UnmarkedPolicy), nil),
	}), nil
}

// IndexStore is the store sessions are persisted to, e.g. for eviction.
func (a *Assistant) IndexStore() *chromemdb.VectorDBManager {
	return a.store
}

type ProcessResult struct {
	Files  []string `json:"files"`
	Chars  int      `json:"chars"`
	Chunks int      `json:"chunks"`
}

// ProcessDocuments extracts, chunks and indexes docs, replacing whatever the
// session had indexed before.
func (a *Assistant) ProcessDocuments(ctx context.Context, sess *session.Session, docs []models.Document) (*ProcessResult, error) {
	if len(docs) == 0 {
		return nil, models.ErrNoDocuments
	}

	text, err := a.extractor.Extract(docs)
	if err != nil {
		return nil, err
	}
	chunks := a.chunker.Split(text)

	index, err := a.store.Build(ctx, chunks, a.embedder)
	if err != nil {
		return nil, err
	}
	if err := a.store.Persist(ctx, index, sess.IndexLocation); err != nil {
		return nil, err
	}

	files := make([]string, len(docs))
	for i, doc := range docs {
		files[i] = doc.Filename
	}
	sess.Indexed = true
	sess.SourceText = text
	sess.ProcessedFiles = files
	sess.TotalChunks = len(chunks)

	log.Info().Str("session", sess.ID).Strs("files", files).Int("chunks", len(chunks)).Msg("Processed documents")
	return &ProcessResult{Files: files, Chars: utf8.RuneCountInString(text), Chunks: len(chunks)}, nil
}

// Resume restores the source text of a session whose index was persisted by
// an earlier process, so a quiz can be generated without the documents.
func (a *Assistant) Resume(ctx context.Context, sess *session.Session) error {
	if !sess.Indexed {
		return models.ErrIndexNotFound
	}
	index, err := a.store.Load(sess.IndexLocation, a.embedder)
	if err != nil {
		return err
	}
	entries, err := index.Entries(ctx)
	if err != nil {
		return err
	}

	chunks := make([]models.Chunk, len(entries))
	for i, entry := range entries {
		chunks[i] = entry.Chunk
	}
	sess.SourceText = parser.Reconstruct(chunks)
	sess.TotalChunks = len(chunks)
	return nil
}

// Ask answers question from the session's documents and appends the
// exchange to the transcript.
func (a *Assistant) Ask(ctx context.Context, sess *session.Session, question string) (*models.PromptResponse, error) {
	if !sess.Indexed {
		return nil, models.ErrIndexNotFound
	}
	index, err := a.store.Load(sess.IndexLocation, a.embedder)
	if err != nil {
		return nil, err
	}

	response, err := a.rag.Query(ctx, index, question)
	if err != nil {
		return nil, err
	}
	sess.Transcript = append(sess.Transcript, models.Exchange{Question: question, Answer: response.Content})
	return response, nil
}

// GenerateQuiz creates a quiz from the session's source text. A quiz with at
// least one question replaces the one in progress.
func (a *Assistant) GenerateQuiz(ctx context.Context, sess *session.Session, count int, difficulty models.Difficulty) (*models.Quiz, error) {
	q, err := a.generator.Generate(ctx, sess.SourceText, count, difficulty)
	if err != nil {
		return nil, err
	}
	if len(q.Questions) == 0 {
		log.Warn().Str("session", sess.ID).Int("dropped", q.Dropped).Msg("Quiz has no usable questions")
		return q, nil
	}
	sess.Quiz = quiz.NewSession(q)
	return q, nil
}

func (a *Assistant) SelectAnswer(sess *session.Session, question, option int) error {
	if sess.Quiz == nil {
		return models.ErrNoQuiz
	}
	return sess.Quiz.Select(question, option)
}

func (a *Assistant) SubmitQuiz(sess *session.Session) (quiz.Score, error) {
	if sess.Quiz == nil {
		return quiz.Score{}, models.ErrNoQuiz
	}
	return quiz.Grade(sess.Quiz), nil
}

// Reset deletes the session's index and forgets its documents, transcript
// and quiz.
func (a *Assistant) Reset(sess *session.Session) error {
	if err := a.store.Clear(sess.IndexLocation); err != nil {
		return fmt.Errorf("failed to reset session %s: %w", sess.ID, err)
	}
	sess.Reset()
	return nil
}
