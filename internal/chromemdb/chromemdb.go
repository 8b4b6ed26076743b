package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdfchat-quiz/internal/embedding"
	"pdfchat-quiz/internal/helper"
	"pdfchat-quiz/internal/models"
)

// metadata keys stored with every chunk
const (
	metaOffset  = "offset"
	metaChunkID = "chunk_id"
	metaNext    = "next" // id of the following chunk, empty for the last one
)

const DefaultCollectionName = "documents"

// VectorDBManager builds chunk indexes and moves them between memory and an
// index directory. Persist, Load and Clear on one manager never interleave.
type VectorDBManager struct {
	collectionName string
	compress       bool
	mu             sync.Mutex
}

// NewVectorDBManager initializes a new vector database manager
func NewVectorDBManager(collectionName string, compress bool) *VectorDBManager {
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	return &VectorDBManager{
		collectionName: collectionName,
		compress:       compress,
	}
}

// Index is a searchable set of chunks with one embedding each.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// Build embeds every chunk in one batched request and returns an in-memory
// index. An empty chunk list yields an empty index without calling the
// embedder.
func (m *VectorDBManager) Build(ctx context.Context, chunks []models.Chunk, embedder embeddings.Embedder) (*Index, error) {
	// chunk ids are offsets and Entries walks the chain from offset 0
	for i, chunk := range chunks {
		if (i == 0 && chunk.Offset != 0) || (i > 0 && chunk.Offset <= chunks[i-1].Offset) {
			return nil, fmt.Errorf("chunks must start at offset 0 and be in offset order, got %d at position %d", chunk.Offset, i)
		}
	}

	var entries []models.ChunkEmbedding
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(chunks) {
			return nil, &models.UpstreamError{
				Op:  "embed documents",
				Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)),
			}
		}
		entries = make([]models.ChunkEmbedding, len(chunks))
		for i, chunk := range chunks {
			entries[i] = models.ChunkEmbedding{Chunk: chunk, Embedding: vectors[i]}
		}
	}

	db := chromem.NewDB()
	index, err := m.fill(ctx, db, entries, embedder)
	if err != nil {
		return nil, err
	}
	log.Info().Int("chunks", len(chunks)).Msg("Built index")
	return index, nil
}

// fill creates the collection in db and adds entries with their vectors.
func (m *VectorDBManager) fill(ctx context.Context, db *chromem.DB, entries []models.ChunkEmbedding, embedder embeddings.Embedder) (*Index, error) {
	collection, err := db.CreateCollection(m.collectionName, nil, embedding.ChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	if len(entries) > 0 {
		docs := make([]chromem.Document, len(entries))
		for i, entry := range entries {
			next := ""
			if i+1 < len(entries) {
				next = entries[i+1].ID()
			}
			docs[i] = chromem.Document{
				ID:      entry.ID(),
				Content: entry.Content,
				Metadata: map[string]string{
					metaOffset:  strconv.Itoa(entry.Offset),
					metaChunkID: strconv.Itoa(entry.ChunkID),
					metaNext:    next,
				},
				Embedding: entry.Embedding,
			}
		}
		if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %w", err)
		}
	}

	return &Index{db: db, collection: collection, embedder: embedder}, nil
}

// Persist writes index to location, replacing whatever was there. The new
// content is written to a staging directory first and then renamed into
// place, so location never holds a half written index.
func (m *VectorDBManager) Persist(ctx context.Context, index *Index, location string) error {
	entries, err := index.Entries(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := helper.CreateFolder(filepath.Dir(location)); err != nil {
		return err
	}
	staging := location + ".staging"
	if err := helper.RemoveFolder(staging); err != nil {
		return err
	}

	db, err := chromem.NewPersistentDB(staging, m.compress)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := m.fill(ctx, db, entries, index.embedder); err != nil {
		_ = helper.RemoveFolder(staging)
		return err
	}

	previous := location + ".previous"
	if helper.FolderExists(location) {
		if err := helper.RemoveFolder(previous); err != nil {
			return err
		}
		if err := os.Rename(location, previous); err != nil {
			return fmt.Errorf("failed to move old index aside: %w", err)
		}
	}
	if err := os.Rename(staging, location); err != nil {
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	if err := helper.RemoveFolder(previous); err != nil {
		log.Warn().Err(err).Str("path", previous).Msg("Error removing previous index")
	}

	log.Info().Str("location", location).Int("chunks", len(entries)).Msg("Persisted index")
	return nil
}

// Load reads the index at location. It returns models.ErrIndexNotFound when
// nothing was persisted there.
func (m *VectorDBManager) Load(location string, embedder embeddings.Embedder) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// NewPersistentDB would create a missing directory
	if !helper.FolderExists(location) {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotFound, location)
	}
	db, err := chromem.NewPersistentDB(location, m.compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	collection := db.GetCollection(m.collectionName, embedding.ChromemFunc(embedder))
	if collection == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotFound, location)
	}

	log.Debug().Str("location", location).Int("chunks", collection.Count()).Msg("Loaded index")
	return &Index{db: db, collection: collection, embedder: embedder}, nil
}

// Clear deletes the index at location. Clearing a missing index is a no-op.
func (m *VectorDBManager) Clear(location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := helper.RemoveFolder(location); err != nil {
		return err
	}
	log.Debug().Str("location", location).Msg("Cleared index")
	return nil
}

// Count returns the number of chunks in the index.
func (i *Index) Count() int {
	return i.collection.Count()
}

// Entries returns every chunk with its stored vector, ordered by offset.
// Stored vectors are L2 normalised.
func (i *Index) Entries(ctx context.Context) ([]models.ChunkEmbedding, error) {
	count := i.Count()
	if count == 0 {
		return nil, nil
	}

	entries := make([]models.ChunkEmbedding, 0, count)
	id := models.Chunk{Offset: 0}.ID()
	for id != "" {
		if len(entries) == count {
			return nil, fmt.Errorf("chunk chain longer than %d documents", count)
		}
		doc, err := i.collection.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
		chunk, err := chunkFromDocument(doc.Content, doc.Metadata)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.ChunkEmbedding{Chunk: chunk, Embedding: doc.Embedding})
		id = doc.Metadata[metaNext]
	}
	if len(entries) != count {
		return nil, fmt.Errorf("chunk chain has %d of %d documents", len(entries), count)
	}
	return entries, nil
}

// Search returns the k chunks most similar to query, most similar first.
// k is clamped to the index size. An empty index returns no results and
// does not embed the query.
func (i *Index) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, errors.New("k must be greater than 0")
	}
	k = min(k, i.Count())
	if k == 0 {
		return nil, nil
	}

	queryEmbedding, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := i.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, err
	}

	found := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		chunk, err := chunkFromDocument(r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		found = append(found, models.SearchResult{Chunk: chunk, Similarity: r.Similarity})
	}
	return found, nil
}

// SearchWithQueryOptions runs a raw similarity search on the collection.
func (i *Index) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, errors.New("either query or embedding must be provided")
	}

	results, err := i.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

func chunkFromDocument(content string, metadata map[string]string) (models.Chunk, error) {
	offset, err := strconv.Atoi(metadata[metaOffset])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("invalid chunk offset %q: %w", metadata[metaOffset], err)
	}
	chunkID, err := strconv.Atoi(metadata[metaChunkID])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("invalid chunk id %q: %w", metadata[metaChunkID], err)
	}
	return models.Chunk{Content: content, Offset: offset, ChunkID: chunkID}, nil
}
