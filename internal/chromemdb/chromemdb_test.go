package chromemdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/parser"
	"pdfchat-quiz/internal/testutil"
)

var corpus = "apples and bananas grow on trees. " +
	"zebras roam the savanna in large herds. " +
	"quantum physics studies very small particles. " +
	"bread is baked from flour, water and yeast."

func chunksOf(t *testing.T, text string) []models.Chunk {
	t.Helper()
	c, err := parser.NewChunker(40, 5)
	require.NoError(t, err)
	return c.Split(text)
}

func TestBuildPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	embedder := &testutil.FakeEmbedder{}
	m := NewVectorDBManager("", false)
	location := filepath.Join(t.TempDir(), "session")

	chunks := chunksOf(t, corpus)
	index, err := m.Build(ctx, chunks, embedder)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), index.Count())
	assert.Equal(t, 1, embedder.DocumentCalls, "chunks are embedded in one batch")

	built, err := index.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, built, len(chunks))
	for i, entry := range built {
		assert.Equal(t, chunks[i], entry.Chunk)
	}

	require.NoError(t, m.Persist(ctx, index, location))
	loaded, err := m.Load(location, embedder)
	require.NoError(t, err)

	restored, err := loaded.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, built, restored)
}

func TestPersistReplacesPreviousContent(t *testing.T) {
	ctx := context.Background()
	embedder := &testutil.FakeEmbedder{}
	m := NewVectorDBManager("", false)
	location := filepath.Join(t.TempDir(), "session")

	first, err := m.Build(ctx, chunksOf(t, corpus), embedder)
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, first, location))

	second, err := m.Build(ctx, chunksOf(t, "only one short chunk"), embedder)
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, second, location))

	loaded, err := m.Load(location, embedder)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Count())

	// no staging or previous directories are left behind
	entries, err := os.ReadDir(filepath.Dir(location))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session", entries[0].Name())
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	m := NewVectorDBManager("", false)
	chunks := []models.Chunk{
		{Content: "zzzz zebra", Offset: 0, ChunkID: 1},
		{Content: "apple apple", Offset: 10, ChunkID: 2},
		{Content: "banana bread", Offset: 20, ChunkID: 3},
	}
	index, err := m.Build(ctx, chunks, &testutil.FakeEmbedder{})
	require.NoError(t, err)

	results, err := index.Search(ctx, "zebra zz", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "zzzz zebra", results[0].Content)
	assert.Equal(t, "chunk-0", results[0].ID())
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchClampsK(t *testing.T) {
	ctx := context.Background()
	m := NewVectorDBManager("", false)
	index, err := m.Build(ctx, chunksOf(t, "a small text"), &testutil.FakeEmbedder{})
	require.NoError(t, err)

	results, err := index.Search(ctx, "text", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestEmptyIndex(t *testing.T) {
	ctx := context.Background()
	embedder := &testutil.FakeEmbedder{}
	m := NewVectorDBManager("", false)
	location := filepath.Join(t.TempDir(), "empty")

	index, err := m.Build(ctx, nil, embedder)
	require.NoError(t, err)
	assert.Zero(t, index.Count())
	assert.Zero(t, embedder.DocumentCalls)

	results, err := index.Search(ctx, "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.QueryCalls, "an empty index does not embed the query")

	require.NoError(t, m.Persist(ctx, index, location))
	loaded, err := m.Load(location, embedder)
	require.NoError(t, err)
	assert.Zero(t, loaded.Count())
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	embedder := &testutil.FakeEmbedder{}
	m := NewVectorDBManager("", false)
	location := filepath.Join(t.TempDir(), "session")

	index, err := m.Build(ctx, chunksOf(t, corpus), embedder)
	require.NoError(t, err)
	require.NoError(t, m.Persist(ctx, index, location))

	require.NoError(t, m.Clear(location))
	require.NoError(t, m.Clear(location))

	_, err = m.Load(location, embedder)
	assert.True(t, errors.Is(err, models.ErrIndexNotFound), "got %v", err)
	assert.NoDirExists(t, location)
}

func TestLoadMissingIndex(t *testing.T) {
	m := NewVectorDBManager("", false)
	location := filepath.Join(t.TempDir(), "never-written")

	_, err := m.Load(location, &testutil.FakeEmbedder{})
	assert.ErrorIs(t, err, models.ErrIndexNotFound)
	assert.NoDirExists(t, location, "loading must not create the directory")
}

func TestBuildRejectsUnorderedChunks(t *testing.T) {
	m := NewVectorDBManager("", false)
	_, err := m.Build(context.Background(), []models.Chunk{
		{Content: "b", Offset: 5, ChunkID: 1},
		{Content: "a", Offset: 0, ChunkID: 2},
	}, &testutil.FakeEmbedder{})
	assert.Error(t, err)
}

func TestBuildPropagatesEmbeddingFailure(t *testing.T) {
	cause := errors.New("boom")
	m := NewVectorDBManager("", false)
	_, err := m.Build(context.Background(), chunksOf(t, corpus), &testutil.FakeEmbedder{Err: cause})
	assert.ErrorIs(t, err, cause)
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct {
	testutil.FakeEmbedder
}

func (s *shortEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := s.FakeEmbedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vectors) == 0 {
		return vectors, err
	}
	return vectors[:len(vectors)-1], nil
}

func TestBuildRejectsShortEmbeddingBatch(t *testing.T) {
	m := NewVectorDBManager("", false)
	chunks := chunksOf(t, corpus)
	require.Greater(t, len(chunks), 1)

	index, err := m.Build(context.Background(), chunks, &shortEmbedder{})
	require.Error(t, err)
	assert.Nil(t, index)
	var upErr *models.UpstreamError
	assert.True(t, errors.As(err, &upErr))
}
