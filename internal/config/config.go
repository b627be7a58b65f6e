package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	NoAuthBypass = true
	AuthToken    = ""

	//models
	ChatModel           = "gpt-3.5-turbo"
	EmbeddingModel      = "text-embedding-3-small"
	CompletionMaxTokens = 500
	ModelTemperature    = 0.1

	//selects the completion backend: "openai" or "gemini"
	LLMProvider     = "openai"
	GeminiModelName = "gemini-2.5-flash-lite-preview-09-2025"

	//vector collections
	EmbeddingDimension  uint64 = 1536
	CollectionName             = "text_documents"
	CacheCollectionName        = "answer_cache"

	//semantic answer cache, off unless explicitly enabled
	CacheEnabled          = false
	CacheSimilarityCutoff = 0.97

	//chunking and retrieval
	ChunkMaxTokens   = 500
	ChunkOverlap     = 50
	SearchLimit      = 10
	MaxContextTokens = 3000

	//bulk indexing
	DocumentsRoot         = "documents"
	ReferenceTemplateName = "template.md"
	IngestBatchSize       = 64
	IngestConcurrency     = 4

	//manifest
	ManifestPath = "manifest/manifest.txt"

	//bounded retry around single provider calls
	RetryMaxAttempts = 3
	RetryBackoffBase = 500 * time.Millisecond

	//worker pool
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//index jobs walk whole directory trees, give them room
	JobTimeout = 5 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false
	QdrantPoolSize = 1

	//http connection pooling for provider clients
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisPassword = ""

	RedisJobStore    = 0
	RedisFeedbackLog = 1

	RedisJobStoreTTL    = 24 * time.Hour
	RedisFeedbackLogTTL = 7 * 24 * time.Hour

	FeedbackLogKey = "manifest:feedback"

	FeedbackReadLimit    = 20
	FeedbackReadLimitMax = 100
)
