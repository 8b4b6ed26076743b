package models

import "strconv"

// Document is an uploaded file held in memory while it is processed
type Document struct {
	Filename string
	Data     []byte
}

// Chunk represents a contiguous segment of the extracted text
type Chunk struct {
	Content string
	Offset  int // character offset of the first rune within the source run
	ChunkID int // 1-based position within the run
}

// ID is stable for a given source text and chunking configuration.
func (c Chunk) ID() string {
	return "chunk-" + strconv.Itoa(c.Offset)
}

// ChunkEmbedding pairs a chunk with the vector stored for it
type ChunkEmbedding struct {
	Chunk
	Embedding []float32
}

// SearchResult is a chunk returned by the retriever with its cosine similarity
type SearchResult struct {
	Chunk
	Similarity float32
}

// Exchange is one question/answer turn of the chat transcript
type Exchange struct {
	Question string
	Answer   string
}

type PromptResponse struct {
	Query   string
	Sources []SearchResult
	Content string
}
