package vectorDB

import (
	"context"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
)

type DistanceMetric string

const (
	Cosine DistanceMetric = "cosine"
	Dot    DistanceMetric = "dot"
)

// Index is the provider-agnostic vector storage contract. Retrieval and
// context assembly only ever see this interface, so the concrete engine can
// be swapped (or faked in tests) without touching the pipeline.
//
// Search returns hits sorted by similarity descending; tag=="" searches all
// categories, any other value restricts hits to records carrying that tag.
// UpsertBatch reports how many records landed so partial failures are never
// silent. Clear drops the collection and recreates it empty.
type Index interface {
	EnsureCollection(ctx context.Context, name string, dimension uint64, metric DistanceMetric) error
	UpsertBatch(ctx context.Context, name string, records []commonModels.VectorRecord) (int, error)
	Search(ctx context.Context, name string, vector []float32, limit uint64, tag string) ([]commonModels.SearchHit, error)
	Clear(ctx context.Context, name string) error

	// semantic answer cache
	GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, id string, vector []float32, answer string) error
}
