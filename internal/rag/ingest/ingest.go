package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rodrigocampos/knowledge-base-rag/internal/adapter/utils"
	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/jobModel"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/chunker"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/embedding"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var logger = logger_i.NewLogger("Indexing")

// ProcessIndexing runs one bulk-index job: every immediate subdirectory of
// the job's root names a document category, and its files are indexed
// tagged with that category.
func ProcessIndexing(ctx context.Context, job jobModel.Job, chk *chunker.Chunker, e embedding.Embedder, index vectorDB.Index) jobModel.Job {
	log := logger.With("traceId", job.TraceId)

	job.CurrentStep = jobModel.IndexProcessing
	if err := index.EnsureCollection(ctx, config.CollectionName, config.EmbeddingDimension, vectorDB.Cosine); err != nil {
		log.Error("Error creating collection", "error", err)
		job.Status = jobModel.JobStatusError
		return job
	}

	indexed, err := IndexTree(ctx, job.JobPayload.IndexRoot, chk, e, index)
	if err != nil {
		log.Error("Bulk indexing failed", "error", err)
		job.Status = jobModel.JobStatusError
		job.Error.Message = err.Error()
		return job
	}

	log.Info("Bulk indexing complete", "chunks", indexed)
	job.JobPayload.Answer = fmt.Sprintf("Indexed %d chunks from %s", indexed, job.JobPayload.IndexRoot)
	job.Status = jobModel.JobStatusComplete
	return job
}

// IndexTree walks root's category subdirectories and indexes their files,
// fanning out across files with a bounded worker count so the embedding
// provider's rate limits are respected. Files that fail to extract are
// logged and skipped; the walk itself failing is an error.
func IndexTree(ctx context.Context, root string, chk *chunker.Chunker, e embedding.Embedder, index vectorDB.Index) (int64, error) {
	categories, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("reading documents root %q: %w", root, err)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(config.IngestConcurrency)
	var indexed atomic.Int64

	for _, category := range categories {
		if !category.IsDir() {
			continue
		}
		tag := category.Name()
		files, err := os.ReadDir(filepath.Join(root, tag))
		if err != nil {
			return indexed.Load(), fmt.Errorf("reading category %q: %w", tag, err)
		}

		for _, file := range files {
			if file.IsDir() || file.Name() == config.ReferenceTemplateName {
				continue
			}
			path := filepath.Join(root, tag, file.Name())
			g.Go(func() error {
				n, err := IndexFile(groupCtx, path, tag, chk, e, index)
				if err != nil {
					logger.Error("Skipping file", "path", path, "error", err)
					return nil
				}
				indexed.Add(int64(n))
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return indexed.Load(), err
	}
	return indexed.Load(), nil
}

// IndexFile chunks one document and upserts its embeddings under the tag.
func IndexFile(ctx context.Context, path, tag string, chk *chunker.Chunker, e embedding.Embedder, index vectorDB.Index) (int, error) {
	text, err := extractText(path)
	if err != nil {
		return 0, err
	}

	pieces := chk.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}

	chunks := make([]commonModels.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = commonModels.DocumentChunk{
			Id:          utils.GetNewUUID(),
			Text:        piece,
			FileName:    filepath.Base(path),
			FilePath:    path,
			Tag:         tag,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
		}
	}

	return BatchIngest(ctx, chunks, index, e)
}

// BatchIngest embeds and upserts chunks in batches, returning how many
// records actually landed in the index.
func BatchIngest(ctx context.Context, chunks []commonModels.DocumentChunk, index vectorDB.Index, embedder embedding.Embedder) (int, error) {
	landed := 0
	for i := 0; i < len(chunks); i += config.IngestBatchSize {
		end := i + config.IngestBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return landed, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return landed, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		records := make([]commonModels.VectorRecord, len(batch))
		for j, c := range batch {
			records[j] = commonModels.VectorRecord{Id: c.Id, Embedding: vectors[j], Chunk: c}
		}

		n, err := index.UpsertBatch(ctx, config.CollectionName, records)
		landed += n
		if err != nil {
			return landed, fmt.Errorf("upserting batch failed: %w", err)
		}
	}
	return landed, nil
}
