package parser

import (
	"strings"

	"pdfchat-quiz/internal/models"
)

const (
	DefaultChunkSize    = 10000 // characters
	DefaultChunkOverlap = 200   // characters
)

// Chunker splits text into fixed size windows that overlap by a fixed number
// of characters. Sizes count runes, not bytes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters: size must be positive and the
// overlap must be in [0, size).
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &models.ConfigError{Field: "chunk_size", Reason: "must be greater than 0"}
	}
	if overlap < 0 {
		return nil, &models.ConfigError{Field: "chunk_overlap", Reason: "must not be negative"}
	}
	if overlap >= size {
		return nil, &models.ConfigError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the chunks of content in order. Every chunk but the last is
// exactly size characters long and each chunk starts overlap characters
// before the previous one ends.
func (c *Chunker) Split(content string) []models.Chunk {
	runes := []rune(content)
	contentLen := len(runes)
	if contentLen == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []models.Chunk
	for start := 0; ; start += step {
		end := min(start+c.size, contentLen)
		chunks = append(chunks, models.Chunk{
			Content: string(runes[start:end]),
			Offset:  start,
			ChunkID: len(chunks) + 1,
		})
		if end == contentLen {
			break
		}
	}
	return chunks
}

// Reconstruct is the inverse of Split. Chunks must be in offset order; the
// part of a chunk already covered by the chunks before it is skipped, so the
// overlap they were split with does not need to be known.
func Reconstruct(chunks []models.Chunk) string {
	var content strings.Builder
	end := 0
	for _, chunk := range chunks {
		runes := []rune(chunk.Content)
		skip := min(max(end-chunk.Offset, 0), len(runes))
		content.WriteString(string(runes[skip:]))
		end = max(end, chunk.Offset+len(runes))
	}
	return content.String()
}
