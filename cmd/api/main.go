package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/data/store"
	jobmodel "github.com/rodrigocampos/knowledge-base-rag/internal/domain/jobModel"
	"github.com/rodrigocampos/knowledge-base-rag/internal/handlers"
	"github.com/rodrigocampos/knowledge-base-rag/internal/job"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/embedding/openaiEmbedding"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm/gemini"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm/openaiLLM"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/manifest"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/tokenizer"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB/memoryDB"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB/qdrantDB"
	"github.com/rodrigocampos/knowledge-base-rag/internal/server"
	"github.com/rodrigocampos/knowledge-base-rag/internal/worker"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init(os.Getenv("APP_ENV") == "production", slog.LevelInfo)
	var logger = logger_i.NewLogger("main")

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on process environment")
	}

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	redisJobs := store.GetRedisJobStore(serviceContext)
	redisFeedback := store.GetRedisFeedbackLog(serviceContext)
	if redisJobs == nil || redisFeedback == nil {
		logger.Error("Redis stores are offline, falling back to in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.FeedbackLog = store.InitInMemoryFeedbackLog()
	} else {
		serviceConfig.JobStore = redisJobs
		serviceConfig.FeedbackLog = redisFeedback
	}
	service := job.InitJobService(serviceConfig)

	vectorIndex := qdrantDB.GetQdrantClient(serviceContext)
	if vectorIndex == nil {
		//keeps local development going without a qdrant container, at the
		//cost of losing the index on restart
		logger.Error("Qdrant is offline, falling back to the in-memory vector store")
		vectorIndex = memoryDB.NewStore(config.CacheSimilarityCutoff)
	}
	embeddingService := openaiEmbedding.GetOpenAIEmbeddingClient()
	llmProvider := chooseProvider(serviceContext)

	if vectorIndex == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorIndex != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	tok, err := tokenizer.ForModel(config.ChatModel)
	if err != nil {
		logger.Error("Could not load tokenizer", "error", err)
		return
	}

	ragService, err := rag.NewService(rag.ServiceConfig{
		VectorDB:      vectorIndex,
		LLM:           llmProvider,
		Embedder:      embeddingService,
		Tokenizer:     tok,
		Manifests:     manifest.NewFileStore(config.ManifestPath),
		FeedbackLog:   serviceConfig.FeedbackLog,
		DocumentsRoot: config.DocumentsRoot,
		CacheEnabled:  config.CacheEnabled,
	})
	if err != nil {
		logger.Error("Could not build rag service", "error", err)
		return
	}

	handlers.InitJobHandler(service)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func chooseProvider(ctx context.Context) llm.Provider {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = config.LLMProvider
	}
	if provider == "gemini" {
		return gemini.GetGeminiClient(ctx)
	}
	return openaiLLM.GetOpenAIClient()
}
