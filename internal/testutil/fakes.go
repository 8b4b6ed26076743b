// Package testutil holds deterministic stand-ins for the upstream model
// clients.
package testutil

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// Dim is the vector size of FakeEmbedder: one dimension per letter plus a
// constant so no vector is zero.
const Dim = 27

// LetterVector embeds text as its letter frequencies.
func LetterVector(text string) []float32 {
	v := make([]float32, Dim)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		} else if unicode.IsDigit(r) {
			v[Dim-1] += 0.5
		}
	}
	v[Dim-1]++
	return v
}

// FakeEmbedder implements embeddings.Embedder with LetterVector.
type FakeEmbedder struct {
	mu             sync.Mutex
	DocumentCalls  int
	QueryCalls     int
	EmbeddedTexts  int
	Err            error
	WaitForContext bool
}

func (f *FakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.DocumentCalls++
	f.EmbeddedTexts += len(texts)
	f.mu.Unlock()
	if err := f.fail(ctx); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = LetterVector(text)
	}
	return vectors, nil
}

func (f *FakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.QueryCalls++
	f.mu.Unlock()
	if err := f.fail(ctx); err != nil {
		return nil, err
	}
	return LetterVector(text), nil
}

func (f *FakeEmbedder) fail(ctx context.Context) error {
	if f.WaitForContext {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.Err
}

// FakeGenerator implements llmservice.Generator. It answers with Respond
// when set and with Response otherwise.
type FakeGenerator struct {
	mu           sync.Mutex
	Response     string
	Respond      func(prompt string) string
	Err          error
	Prompts      []string
	Temperatures []float64
}

func (f *FakeGenerator) Generate(_ context.Context, prompt string, temperature float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	f.Temperatures = append(f.Temperatures, temperature)
	if f.Err != nil {
		return "", f.Err
	}
	if f.Respond != nil {
		return f.Respond(prompt), nil
	}
	return f.Response, nil
}

func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}
