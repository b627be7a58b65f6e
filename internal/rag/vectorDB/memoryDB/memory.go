package memoryDB

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB"
)

// Store is a brute-force cosine-similarity index kept in process memory.
// It backs the retrieval tests and offline runs; it implements the same
// Index contract as the Qdrant adapter.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	cache       map[string]cacheEntry
	cutoff      float32
}

type collection struct {
	dimension uint64
	records   map[string]commonModels.VectorRecord
}

type cacheEntry struct {
	vector []float32
	answer string
}

func NewStore(cacheCutoff float32) *Store {
	return &Store{
		collections: make(map[string]*collection),
		cache:       make(map[string]cacheEntry),
		cutoff:      cacheCutoff,
	}
}

func (s *Store) EnsureCollection(_ context.Context, name string, dimension uint64, _ vectorDB.DistanceMetric) error {
	if name == "" {
		return fmt.Errorf("empty collection name")
	}
	if dimension == 0 {
		return fmt.Errorf("invalid dimension for collection %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return nil
	}
	s.collections[name] = &collection{
		dimension: dimension,
		records:   make(map[string]commonModels.VectorRecord),
	}
	return nil
}

func (s *Store) UpsertBatch(_ context.Context, name string, records []commonModels.VectorRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, exists := s.collections[name]
	if !exists {
		return 0, fmt.Errorf("collection %q does not exist", name)
	}
	for i, rec := range records {
		if uint64(len(rec.Embedding)) != coll.dimension {
			return i, fmt.Errorf("record %s: vector dimension %d does not match collection dimension %d",
				rec.Id, len(rec.Embedding), coll.dimension)
		}
		coll.records[rec.Id] = rec
	}
	return len(records), nil
}

func (s *Store) Search(_ context.Context, name string, vector []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, exists := s.collections[name]
	if !exists {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}

	type scored struct {
		id    string
		hit   commonModels.SearchHit
		score float32
	}
	var matches []scored
	for id, rec := range coll.records {
		if tag != "" && rec.Chunk.Tag != tag {
			continue
		}
		score := cosine(vector, rec.Embedding)
		matches = append(matches, scored{
			id:    id,
			score: score,
			hit: commonModels.SearchHit{
				Text:       rec.Chunk.Text,
				FileName:   rec.Chunk.FileName,
				FilePath:   rec.Chunk.FilePath,
				ChunkIndex: rec.Chunk.ChunkIndex,
				Tag:        rec.Chunk.Tag,
				Score:      score,
			},
		})
	}

	// Ties break on record id so a fixed index state always ranks the same.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].id < matches[j].id
	})

	if uint64(len(matches)) > limit {
		matches = matches[:limit]
	}
	hits := make([]commonModels.SearchHit, len(matches))
	for i, m := range matches {
		hits[i] = m.hit
	}
	return hits, nil
}

func (s *Store) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, exists := s.collections[name]
	if !exists {
		return fmt.Errorf("collection %q does not exist", name)
	}
	s.collections[name] = &collection{
		dimension: coll.dimension,
		records:   make(map[string]commonModels.VectorRecord),
	}
	return nil
}

func (s *Store) GetCachedAnswer(_ context.Context, queryVector []float32) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bestScore float32
	var bestAnswer string
	for _, entry := range s.cache {
		if score := cosine(queryVector, entry.vector); score > bestScore {
			bestScore = score
			bestAnswer = entry.answer
		}
	}
	if bestScore < s.cutoff {
		return "", false, nil
	}
	return bestAnswer, true, nil
}

func (s *Store) SaveToCache(_ context.Context, id string, vector []float32, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[id] = cacheEntry{vector: vector, answer: answer}
	return nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
