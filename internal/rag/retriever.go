package rag

import (
	"context"

	"github.com/rs/zerolog/log"

	"pdfchat-quiz/internal/models"
)

const DefaultTopK = 4

// Searcher is an index that can rank its chunks against a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

type Retriever struct {
	topK int
}

// NewRetriever returns a retriever that fetches topK chunks when the caller
// does not ask for a specific number.
func NewRetriever(topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{topK: topK}
}

// Search returns up to k chunks of index ranked by descending similarity to
// query. k <= 0 uses the retriever default.
func (r *Retriever) Search(ctx context.Context, index Searcher, query string, k int) ([]models.SearchResult, error) {
	if index == nil {
		return nil, models.ErrIndexNotFound
	}
	if k <= 0 {
		k = r.topK
	}

	results, err := index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("k", k).Int("results", len(results)).Msg("Retrieved chunks")
	return results, nil
}
