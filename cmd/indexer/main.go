package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/chunker"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/embedding/openaiEmbedding"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/ingest"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/tokenizer"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB/qdrantDB"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

// One-shot bulk indexer. Points at a documents tree whose immediate
// subdirectories name the searchable categories and loads every supported
// file into the vector index.
func main() {
	logger_i.Init(os.Getenv("APP_ENV") == "production", slog.LevelInfo)
	logger := logger_i.NewLogger("indexer")

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on process environment")
	}

	var root string
	var clearFirst bool
	flag.StringVar(&root, "root", config.DocumentsRoot, "documents root directory")
	flag.BoolVar(&clearFirst, "clear", false, "drop and recreate the collection before indexing")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	index := qdrantDB.GetQdrantClient(ctx)
	if index == nil {
		logger.Error("Vector database is unreachable")
		os.Exit(1)
	}
	embedder := openaiEmbedding.GetOpenAIEmbeddingClient()
	if embedder == nil {
		logger.Error("Embedding client failed to initialize, is OPENAI_API_KEY set?")
		os.Exit(1)
	}

	tok, err := tokenizer.ForModel(config.ChatModel)
	if err != nil {
		logger.Error("Could not load tokenizer", "error", err)
		os.Exit(1)
	}
	chk, err := chunker.New(tok, config.ChunkMaxTokens, config.ChunkOverlap)
	if err != nil {
		logger.Error("Could not build chunker", "error", err)
		os.Exit(1)
	}

	if clearFirst {
		logger.Info("Clearing collection before indexing", "collection", config.CollectionName)
		if err := index.Clear(ctx, config.CollectionName); err != nil {
			logger.Error("Could not clear collection", "error", err)
			os.Exit(1)
		}
	}
	if err := index.EnsureCollection(ctx, config.CollectionName, config.EmbeddingDimension, vectorDB.Cosine); err != nil {
		logger.Error("Could not create collection", "error", err)
		os.Exit(1)
	}

	indexed, err := ingest.IndexTree(ctx, root, chk, embedder, index)
	if err != nil {
		logger.Error("Bulk indexing failed", "error", err, "chunksIndexed", indexed)
		os.Exit(1)
	}
	logger.Info("Bulk indexing finished", "root", root, "chunksIndexed", indexed)
}
