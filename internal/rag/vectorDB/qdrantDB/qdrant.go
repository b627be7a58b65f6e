package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var (
	logger         *logger_i.Logger
	qdrantInstance *qdrant.Client
	once           sync.Once
)

type ClientHolder struct {
	QObj *qdrant.Client
}

// GetQdrantClient returns the process-wide Qdrant adapter, creating the
// document and cache collections on first use. Returns nil when Qdrant
// is unreachable so callers can fall back or refuse to start.
func GetQdrantClient(ctx context.Context) vectorDB.Index {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(ctx)
		if res != nil {
			qdrantInstance = res
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if qdrantInstance == nil {
		return nil
	}
	return &ClientHolder{QObj: qdrantInstance}
}

func newClient(ctx context.Context) *qdrant.Client {
	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate qdrant client", "error", err)
		return nil
	}

	holder := &ClientHolder{QObj: client}
	if err := holder.EnsureCollection(ctx, config.CollectionName, config.EmbeddingDimension, vectorDB.Cosine); err != nil {
		logger.Error("could not create collection", "collectionName", config.CollectionName, "error", err)
		return nil
	}
	if err := holder.EnsureCollection(ctx, config.CacheCollectionName, config.EmbeddingDimension, vectorDB.Cosine); err != nil {
		logger.Error("could not create cache collection", "error", err)
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

// EnsureCollection is idempotent: an existing collection is left untouched.
func (db *ClientHolder) EnsureCollection(ctx context.Context, name string, dimension uint64, metric vectorDB.DistanceMetric) error {
	if name == "" {
		return errors.New("empty collection name")
	}

	exists, err := db.QObj.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("collection existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	return db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: toQdrantDistance(metric),
		}),
	})
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, name string, records []commonModels.VectorRecord) (int, error) {
	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(rec.Id),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":         rec.Chunk.Text,
				"file_name":    rec.Chunk.FileName,
				"file_path":    rec.Chunk.FilePath,
				"tag":          rec.Chunk.Tag,
				"chunk_index":  int64(rec.Chunk.ChunkIndex),
				"total_chunks": int64(rec.Chunk.TotalChunks),
			}),
		}
	}

	// Wait=true makes the write visible before we report it landed.
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return len(records), nil
}

func (db *ClientHolder) Search(ctx context.Context, name string, vector []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	query := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if tag != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("tag", tag)},
		}
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	hits := make([]commonModels.SearchHit, 0, len(result))
	for _, point := range result {
		hits = append(hits, commonModels.SearchHit{
			Text:       point.Payload["text"].GetStringValue(),
			FileName:   point.Payload["file_name"].GetStringValue(),
			FilePath:   point.Payload["file_path"].GetStringValue(),
			Tag:        point.Payload["tag"].GetStringValue(),
			ChunkIndex: int(point.Payload["chunk_index"].GetIntegerValue()),
			Score:      point.Score,
		})
	}

	loggr.Debug("Qdrant search done", "hits", len(hits), "tag", tag)
	return hits, nil
}

// Clear drops and recreates the collection, leaving it empty but queryable.
func (db *ClientHolder) Clear(ctx context.Context, name string) error {
	if err := db.QObj.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("dropping collection %q failed: %w", name, err)
	}
	return db.EnsureCollection(ctx, name, config.EmbeddingDimension, vectorDB.Cosine)
}

func toQdrantDistance(metric vectorDB.DistanceMetric) qdrant.Distance {
	if metric == vectorDB.Dot {
		return qdrant.Distance_Dot
	}
	return qdrant.Distance_Cosine
}
