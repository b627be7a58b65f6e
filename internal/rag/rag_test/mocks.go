package rag_test

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB"
)

type MockEmbedder struct {
	OnEmbed      func(ctx context.Context, text string) ([]float32, error)
	OnEmbedBatch func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnEmbedBatch != nil {
		return m.OnEmbedBatch(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

type MockVectorDB struct {
	OnSearch          func(ctx context.Context, name string, vector []float32, limit uint64, tag string) ([]commonModels.SearchHit, error)
	OnUpsertBatch     func(ctx context.Context, name string, records []commonModels.VectorRecord) (int, error)
	OnGetCachedAnswer func(ctx context.Context, queryVector []float32) (string, bool, error)
	OnEnsure          func(ctx context.Context, name string, dimension uint64) error
	SavedToCache      atomic.Int32
}

func (m *MockVectorDB) EnsureCollection(ctx context.Context, name string, dimension uint64, metric vectorDB.DistanceMetric) error {
	if m.OnEnsure != nil {
		return m.OnEnsure(ctx, name, dimension)
	}
	return nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, name string, records []commonModels.VectorRecord) (int, error) {
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, name, records)
	}
	return len(records), nil
}

func (m *MockVectorDB) Search(ctx context.Context, name string, vector []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, name, vector, limit, tag)
	}
	return nil, nil
}

func (m *MockVectorDB) Clear(ctx context.Context, name string) error { return nil }

func (m *MockVectorDB) GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, queryVector)
	}
	return "", false, nil
}

func (m *MockVectorDB) SaveToCache(ctx context.Context, id string, vector []float32, answer string) error {
	m.SavedToCache.Add(1)
	return nil
}

// MockLLM routes calls by what the prompt opens with, so one mock serves the
// classifier, the manifest editor and the completion step in the same test.
type MockLLM struct {
	OnClassify        func(ctx context.Context, prompt string) (string, error)
	OnEditManifest    func(ctx context.Context, prompt string) (string, error)
	OnComplete        func(ctx context.Context, prompt string) (string, error)
	CompletionCalls   atomic.Int32
	ManifestEditCalls atomic.Int32
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Analyze if the following message"):
		if m.OnClassify != nil {
			return m.OnClassify(ctx, prompt)
		}
		return `{"type": "query", "response": "default question"}`, nil
	case strings.Contains(prompt, "specialized in modifying text documents"):
		m.ManifestEditCalls.Add(1)
		if m.OnEditManifest != nil {
			return m.OnEditManifest(ctx, prompt)
		}
		return "", nil
	default:
		m.CompletionCalls.Add(1)
		if m.OnComplete != nil {
			return m.OnComplete(ctx, prompt)
		}
		return "default answer", nil
	}
}

type MockFeedbackLog struct {
	Directives []string
}

func (m *MockFeedbackLog) AppendFeedback(ctx context.Context, directive string) error {
	m.Directives = append(m.Directives, directive)
	return nil
}

func (m *MockFeedbackLog) RecentFeedback(ctx context.Context, limit int) ([]string, error) {
	return m.Directives, nil
}

// wordTokenizer treats every whitespace-separated word as one token, which
// keeps these tests offline (the real adapter fetches BPE data at runtime).
type wordTokenizer struct {
	words map[int]string
	ids   map[string]int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{words: map[int]string{}, ids: map[string]int{}}
}

func (w *wordTokenizer) Encode(text string) []int {
	var tokens []int
	for _, word := range strings.Fields(text) {
		id, ok := w.ids[word]
		if !ok {
			id = len(w.ids)
			w.ids[word] = id
			w.words[id] = word
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (w *wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = w.words[id]
	}
	return strings.Join(parts, " ")
}

func (w *wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }
