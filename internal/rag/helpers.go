package rag

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/jobModel"
	"github.com/rodrigocampos/knowledge-base-rag/internal/metrics"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

func returnOutput(job jobModel.Job, answer string) jobModel.Job {
	job.JobPayload.Answer = answer
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeClassifyStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) commonModels.ClassifiedMessage {
	job.CurrentStep = jobModel.ClassifyCall

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("classification", time.Since(start)) }()

	classified := s.classifier.Classify(ctx, job.JobPayload.Message)
	log.Debug("Message classified", "kind", classified.Kind)
	return classified
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, question string) ([]float32, error) {
	job.CurrentStep = jobModel.EmbeddingCall

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	var vector []float32
	err := withRetry(ctx, log, "embedding", func() error {
		var callErr error
		vector, callErr = s.embedder.Embed(ctx, question)
		return callErr
	})
	return vector, err
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, vector []float32) (string, bool) {
	job.CurrentStep = jobModel.CacheCall

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	answer, found, err := s.vectorDB.GetCachedAnswer(ctx, vector)
	if err != nil {
		log.Debug("Cache lookup failed, continuing with retrieval", "error", err)
		return "", false
	}
	return answer, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, vector []float32) ([]commonModels.SearchHit, error) {
	job.CurrentStep = jobModel.VectorDBCall

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	var hits []commonModels.SearchHit
	err := withRetry(ctx, log, "vector_search", func() error {
		var callErr error
		hits, callErr = s.vectorDB.Search(ctx, config.CollectionName, vector, config.SearchLimit, job.JobPayload.Tag)
		return callErr
	})
	return hits, err
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, prompt string) (string, error) {
	job.CurrentStep = jobModel.LLMCall

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	var answer string
	err := withRetry(ctx, log, "completion", func() error {
		var callErr error
		answer, callErr = s.llmProvider.Complete(ctx, prompt)
		return callErr
	})
	return answer, err
}

// referenceFor loads the category's reference template if the category has
// one; missing templates just mean an empty {reference} slot.
func (s *service) referenceFor(tag string) string {
	if tag == "" || s.documentsRoot == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(s.documentsRoot, tag, config.ReferenceTemplateName))
	if err != nil {
		return ""
	}
	return string(data)
}

func sourcesOf(hits []commonModels.SearchHit) []string {
	seen := make(map[string]struct{}, len(hits))
	var sources []string
	for _, h := range hits {
		if _, dup := seen[h.FileName]; dup {
			continue
		}
		seen[h.FileName] = struct{}{}
		sources = append(sources, h.FileName)
	}
	return sources
}
