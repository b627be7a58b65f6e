package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rodrigocampos/knowledge-base-rag/internal/adapter/utils"
	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/jobModel"
	"github.com/rodrigocampos/knowledge-base-rag/internal/metrics"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/chunker"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/classifier"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/contextbuilder"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/embedding"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/ingest"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/manifest"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/tokenizer"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/vectorDB"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

// NoInformationMessage is returned when retrieval finds nothing; no
// completion call is made in that case.
const NoInformationMessage = "I couldn't find any relevant information to answer your question."

// FeedbackAppliedMessage confirms a feedback turn; the original question is
// not answered in the same turn.
const FeedbackAppliedMessage = "Thanks. Your feedback has been applied and will shape future answers."

// Service is the only surface the worker sees. Each turn runs as one linear
// pipeline: classify, then either answer from retrieval or edit the manifest.
type Service interface {
	ProcessMessage(ctx context.Context, job jobModel.Job) jobModel.Job
	IndexDocuments(ctx context.Context, job jobModel.Job) jobModel.Job
}

type ServiceConfig struct {
	VectorDB      vectorDB.Index
	LLM           llm.Provider
	Embedder      embedding.Embedder
	Tokenizer     tokenizer.Tokenizer
	Manifests     manifest.Store
	FeedbackLog   jobModel.FeedbackLog // optional audit trail
	DocumentsRoot string
	CacheEnabled  bool
}

type service struct {
	vectorDB      vectorDB.Index
	llmProvider   llm.Provider
	embedder      embedding.Embedder
	classifier    *classifier.Classifier
	editor        *manifest.Editor
	manifests     manifest.Store
	assembler     *contextbuilder.Assembler
	chunker       *chunker.Chunker
	feedbackLog   jobModel.FeedbackLog
	documentsRoot string
	cacheEnabled  bool
	logger        *logger_i.Logger
}

func NewService(cfg ServiceConfig) (Service, error) {
	chk, err := chunker.New(cfg.Tokenizer, config.ChunkMaxTokens, config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}
	return &service{
		vectorDB:      cfg.VectorDB,
		llmProvider:   cfg.LLM,
		embedder:      cfg.Embedder,
		classifier:    classifier.New(cfg.LLM),
		editor:        manifest.NewEditor(cfg.LLM, cfg.Manifests),
		manifests:     cfg.Manifests,
		assembler:     contextbuilder.New(cfg.Tokenizer),
		chunker:       chk,
		feedbackLog:   cfg.FeedbackLog,
		documentsRoot: cfg.DocumentsRoot,
		cacheEnabled:  cfg.CacheEnabled,
		logger:        logger_i.NewLogger("RAG Service"),
	}, nil
}

func (s *service) ProcessMessage(ctx context.Context, job jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", job.TraceId, "jobId", job.Id)

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	classified := s.executeClassifyStep(processContext, inMethodLogger, &job)
	job.JobPayload.MessageKind = classified.Kind
	metrics.CountClassification(string(classified.Kind))

	if classified.Kind == commonModels.MessageFeedback {
		return s.applyFeedback(processContext, inMethodLogger, job, classified.Text)
	}

	// query and other both go through retrieval; other is best-effort
	return s.answer(processContext, inMethodLogger, job, classified.Text)
}

func (s *service) answer(ctx context.Context, log *logger_i.Logger, job jobModel.Job, question string) jobModel.Job {
	vector, err := s.executeEmbeddingStep(ctx, log, &job, question)
	if err != nil {
		return s.jobError(job, err, "EMBEDDING_FAILURE", isRetryable(err))
	}

	if s.cacheEnabled {
		if cached, found := s.executeCacheCheckStep(ctx, log, &job, vector); found {
			return returnOutput(job, cached)
		}
	}

	hits, err := s.executeVectorSearchStep(ctx, log, &job, vector)
	if err != nil {
		return s.jobError(job, err, "VECTOR_DB_FAILURE", isRetryable(err))
	}
	metrics.ObserveRetrievalHits(len(hits))

	if len(hits) == 0 {
		log.Info("No hits for query, skipping completion", "tag", job.JobPayload.Tag)
		return returnOutput(job, NoInformationMessage)
	}

	job.CurrentStep = jobModel.AssembleContext
	contextBlob, err := s.assembler.Assemble(hits, config.MaxContextTokens)
	if errors.Is(err, contextbuilder.ErrNoContext) {
		return returnOutput(job, NoInformationMessage)
	}
	job.JobPayload.Sources = sourcesOf(hits)

	manifestText, err := s.manifests.Read()
	if err != nil {
		return s.jobError(job, err, "MANIFEST_READ_FAILURE", false)
	}
	prompt := manifest.Interpolate(manifestText, contextBlob, question, s.referenceFor(job.JobPayload.Tag))

	answer, err := s.executeLLMStep(ctx, log, &job, prompt)
	if err != nil {
		// The turn reports the failure instead of crashing the session.
		log.Error("Completion failed after retries", "error", err)
		return returnOutput(job, fmt.Sprintf("Error generating response: %v", err))
	}

	if s.cacheEnabled {
		go func() {
			if err := s.vectorDB.SaveToCache(context.WithoutCancel(ctx), utils.GetNewUUID(), vector, answer); err != nil {
				s.logger.Error("Failed to save answer to cache", "error", err)
			}
		}()
	}

	return returnOutput(job, answer)
}

func (s *service) applyFeedback(ctx context.Context, log *logger_i.Logger, job jobModel.Job, directive string) jobModel.Job {
	job.CurrentStep = jobModel.ManifestEdit
	log.Info("Applying feedback to manifest")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("manifest_edit", time.Since(start)) }()

	if _, err := s.editor.ApplyFeedback(ctx, directive); err != nil {
		return s.jobError(job, err, "MANIFEST_EDIT_FAILURE", isRetryable(err))
	}

	if s.feedbackLog != nil {
		if err := s.feedbackLog.AppendFeedback(ctx, directive); err != nil {
			log.Error("Failed to record feedback in audit log", "error", err)
		}
	}

	return returnOutput(job, FeedbackAppliedMessage)
}

func (s *service) IndexDocuments(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_indexing", time.Since(start)) }()

	j := ingest.ProcessIndexing(ctx, job, s.chunker, s.embedder, s.vectorDB)
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New("bulk indexing failed"), "INDEXING_FAILURE", true)
	}
	return j
}
