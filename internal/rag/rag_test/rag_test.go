package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/openai/openai-go"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/jobModel"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/manifest"
)

const testManifest = `Answer the question below using only the background information.

Background information:
{information}

Reference layout:
{reference}

Question: {query}
`

type testHarness struct {
	service   rag.Service
	manifests *manifest.FileStore
	feedback  *MockFeedbackLog
	llm       *MockLLM
	vec       *MockVectorDB
	emb       *MockEmbedder
	path      string
}

func newTestService(t *testing.T, cacheEnabled bool) *testHarness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manifest.txt")
	if err := os.WriteFile(path, []byte(testManifest), 0644); err != nil {
		t.Fatalf("seeding manifest: %v", err)
	}

	h := &testHarness{
		manifests: manifest.NewFileStore(path),
		feedback:  &MockFeedbackLog{},
		llm:       &MockLLM{},
		vec:       &MockVectorDB{},
		emb:       &MockEmbedder{},
		path:      path,
	}

	svc, err := rag.NewService(rag.ServiceConfig{
		VectorDB:     h.vec,
		LLM:          h.llm,
		Embedder:     h.emb,
		Tokenizer:    newWordTokenizer(),
		Manifests:    h.manifests,
		FeedbackLog:  h.feedback,
		CacheEnabled: cacheEnabled,
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	h.service = svc
	return h
}

func messageJob(message, tag string) jobModel.Job {
	return jobModel.Job{
		Id:      "test-job",
		TraceId: "test-trace",
		JobType: jobModel.JobTypeMessage,
		JobPayload: jobModel.JobPayload{
			Message: message,
			Tag:     tag,
		},
	}
}

func someHits() []commonModels.SearchHit {
	return []commonModels.SearchHit{
		{Text: "The moon orbits the earth.", FileName: "astronomy.md", Tag: "science", Score: 0.92},
		{Text: "Tides follow the moon.", FileName: "oceans.md", Tag: "science", Score: 0.87},
	}
}

func TestProcessMessage_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(h *testHarness)
		tag            string
		expectedStatus jobModel.JobStatus
		expectedAnswer string
		expectedErr    string
		wantCompletion int32
	}{
		{
			name: "Success_Full_Flow",
			setupMocks: func(h *testHarness) {
				h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
					return someHits(), nil
				}
				h.llm.OnComplete = func(ctx context.Context, prompt string) (string, error) {
					return "final answer", nil
				}
			},
			expectedAnswer: "final answer",
			wantCompletion: 1,
		},
		{
			name: "Zero_Hits_Skips_Completion",
			setupMocks: func(h *testHarness) {
				h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
					return nil, nil
				}
			},
			tag:            "unindexed-category",
			expectedAnswer: rag.NoInformationMessage,
			wantCompletion: 0,
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(h *testHarness) {
				h.emb.OnEmbed = func(ctx context.Context, text string) ([]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "EMBEDDING_FAILURE",
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(h *testHarness) {
				h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
					return nil, errors.New("db timeout")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "VECTOR_DB_FAILURE",
		},
		{
			name: "Failure_LLM_Reports_Without_Crashing",
			setupMocks: func(h *testHarness) {
				h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
					return someHits(), nil
				}
				h.llm.OnComplete = func(ctx context.Context, prompt string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			expectedAnswer: "Error generating response: provider down",
			wantCompletion: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestService(t, false)
			tt.setupMocks(h)

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			result := h.service.ProcessMessage(ctx, messageJob("test question", tt.tag))

			if tt.expectedStatus != "" && result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if tt.expectedAnswer != "" && result.JobPayload.Answer != tt.expectedAnswer {
				t.Errorf("Answer got %q, want %q", result.JobPayload.Answer, tt.expectedAnswer)
			}
			if tt.expectedErr != "" {
				if result.Error.Code != http.StatusInternalServerError {
					t.Errorf("Error Code got %d, want %d", result.Error.Code, http.StatusInternalServerError)
				}
				if result.Error.Message != tt.expectedErr {
					t.Errorf("Error Message got %s, want %s", result.Error.Message, tt.expectedErr)
				}
			}
			if got := h.llm.CompletionCalls.Load(); got != tt.wantCompletion {
				t.Errorf("Completion calls got %d, want %d", got, tt.wantCompletion)
			}
		})
	}
}

// providerError mirrors what the OpenAI SDK returns on an HTTP failure; the
// request metadata must be populated because Error() dereferences it.
func providerError(statusCode int) error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/embeddings", nil)
	return &openai.Error{
		StatusCode: statusCode,
		Request:    req,
		Response:   &http.Response{StatusCode: statusCode},
	}
}

func TestProcessMessage_TransientEmbeddingFailureRecovers(t *testing.T) {
	h := newTestService(t, false)

	embedCalls := 0
	h.emb.OnEmbed = func(ctx context.Context, text string) ([]float32, error) {
		embedCalls++
		if embedCalls == 1 {
			return nil, providerError(http.StatusTooManyRequests)
		}
		return []float32{0.1, 0.2}, nil
	}
	h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
		return someHits(), nil
	}
	h.llm.OnComplete = func(ctx context.Context, prompt string) (string, error) {
		return "recovered answer", nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "retry-trace")
	result := h.service.ProcessMessage(ctx, messageJob("question during a rate limit", ""))

	if result.Status == jobModel.JobStatusError {
		t.Fatalf("Job failed despite the embedder recovering: %+v", result.Error)
	}
	if result.JobPayload.Answer != "recovered answer" {
		t.Errorf("Answer got %q, want %q", result.JobPayload.Answer, "recovered answer")
	}
	if embedCalls != 2 {
		t.Errorf("Embed calls got %d, want 2 (one rate-limited, one retried)", embedCalls)
	}
}

func TestProcessMessage_AuthFailureNotRetried(t *testing.T) {
	h := newTestService(t, false)

	embedCalls := 0
	h.emb.OnEmbed = func(ctx context.Context, text string) ([]float32, error) {
		embedCalls++
		return nil, providerError(http.StatusUnauthorized)
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "auth-trace")
	result := h.service.ProcessMessage(ctx, messageJob("question with a bad api key", ""))

	if result.Status != jobModel.JobStatusError {
		t.Fatalf("Status got %v, want %v", result.Status, jobModel.JobStatusError)
	}
	if result.Error.Message != "EMBEDDING_FAILURE" {
		t.Errorf("Error Message got %s, want EMBEDDING_FAILURE", result.Error.Message)
	}
	if embedCalls != 1 {
		t.Errorf("Embed calls got %d, auth failures must not be retried", embedCalls)
	}
}

func TestProcessMessage_TagReachesSearch(t *testing.T) {
	h := newTestService(t, false)

	var searchedTag string
	h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
		searchedTag = tag
		return someHits(), nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "tag-trace")
	h.service.ProcessMessage(ctx, messageJob("what about the moon?", "science"))

	if searchedTag != "science" {
		t.Errorf("Search saw tag %q, want %q", searchedTag, "science")
	}
}

func TestProcessMessage_SourcesAreDeduplicated(t *testing.T) {
	h := newTestService(t, false)

	h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
		return []commonModels.SearchHit{
			{Text: "chunk one", FileName: "guide.md", Score: 0.9},
			{Text: "chunk two", FileName: "guide.md", Score: 0.8},
			{Text: "chunk three", FileName: "faq.md", Score: 0.7},
		}, nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "sources-trace")
	result := h.service.ProcessMessage(ctx, messageJob("question", ""))

	if len(result.JobPayload.Sources) != 2 {
		t.Fatalf("Sources got %v, want two distinct files", result.JobPayload.Sources)
	}
	if result.JobPayload.Sources[0] != "guide.md" || result.JobPayload.Sources[1] != "faq.md" {
		t.Errorf("Sources got %v, want [guide.md faq.md]", result.JobPayload.Sources)
	}
}

func TestProcessMessage_CacheHitSkipsRetrieval(t *testing.T) {
	h := newTestService(t, true)

	h.vec.OnGetCachedAnswer = func(ctx context.Context, v []float32) (string, bool, error) {
		return "cached answer", true, nil
	}
	searchCalled := false
	h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
		searchCalled = true
		return someHits(), nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "cache-trace")
	result := h.service.ProcessMessage(ctx, messageJob("question", ""))

	if result.JobPayload.Answer != "cached answer" {
		t.Errorf("Answer got %q, want cached answer", result.JobPayload.Answer)
	}
	if searchCalled {
		t.Error("Search should not run on a cache hit")
	}
}

func TestProcessMessage_FeedbackEditsManifest(t *testing.T) {
	h := newTestService(t, false)

	h.llm.OnClassify = func(ctx context.Context, prompt string) (string, error) {
		return `{"type": "feedback", "response": "Always answer in bullet points."}`, nil
	}
	revised := `Answer in bullet points using {information} and {reference} for {query}.`
	h.llm.OnEditManifest = func(ctx context.Context, prompt string) (string, error) {
		return revised, nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "feedback-trace")
	result := h.service.ProcessMessage(ctx, messageJob("please use bullet points", ""))

	if result.JobPayload.Answer != rag.FeedbackAppliedMessage {
		t.Errorf("Answer got %q, want feedback confirmation", result.JobPayload.Answer)
	}
	if got := h.llm.CompletionCalls.Load(); got != 0 {
		t.Errorf("Feedback turn ran %d completions, want 0", got)
	}

	stored, err := h.manifests.Read()
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	if stored != revised {
		t.Errorf("Manifest got %q, want the revised text", stored)
	}
	if len(h.feedback.Directives) != 1 || h.feedback.Directives[0] != "Always answer in bullet points." {
		t.Errorf("Feedback log got %v, want the applied directive", h.feedback.Directives)
	}
}

func TestProcessMessage_FeedbackRejectedOnPlaceholderLoss(t *testing.T) {
	h := newTestService(t, false)

	h.llm.OnClassify = func(ctx context.Context, prompt string) (string, error) {
		return `{"type": "feedback", "response": "Drop the reference section."}`, nil
	}
	h.llm.OnEditManifest = func(ctx context.Context, prompt string) (string, error) {
		return "A rewrite that lost {information} and {query}.", nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "reject-trace")
	result := h.service.ProcessMessage(ctx, messageJob("drop the reference bit", ""))

	if result.Status != jobModel.JobStatusError {
		t.Errorf("Status got %v, want %v", result.Status, jobModel.JobStatusError)
	}
	if result.Error.Message != "MANIFEST_EDIT_FAILURE" {
		t.Errorf("Error Message got %s, want MANIFEST_EDIT_FAILURE", result.Error.Message)
	}

	stored, err := h.manifests.Read()
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	if stored != testManifest {
		t.Error("Manifest changed even though the rewrite was rejected")
	}
	if len(h.feedback.Directives) != 0 {
		t.Errorf("Rejected feedback was still logged: %v", h.feedback.Directives)
	}
}

func TestProcessMessage_OtherStillAnswersBestEffort(t *testing.T) {
	h := newTestService(t, false)

	h.llm.OnClassify = func(ctx context.Context, prompt string) (string, error) {
		return "not json at all", nil
	}
	h.vec.OnSearch = func(ctx context.Context, name string, v []float32, limit uint64, tag string) ([]commonModels.SearchHit, error) {
		return someHits(), nil
	}
	h.llm.OnComplete = func(ctx context.Context, prompt string) (string, error) {
		return "best effort answer", nil
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "other-trace")
	result := h.service.ProcessMessage(ctx, messageJob("hmm", ""))

	if result.JobPayload.MessageKind != commonModels.MessageOther {
		t.Errorf("Kind got %v, want %v", result.JobPayload.MessageKind, commonModels.MessageOther)
	}
	if result.JobPayload.Answer != "best effort answer" {
		t.Errorf("Answer got %q, want best effort answer", result.JobPayload.Answer)
	}
}

func TestIndexDocuments_Scenarios(t *testing.T) {
	newDocTree := func(t *testing.T) string {
		t.Helper()
		root := t.TempDir()
		science := filepath.Join(root, "science")
		if err := os.MkdirAll(science, 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(science, "astronomy.txt"), []byte("the moon orbits the earth and the tides follow"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(science, config.ReferenceTemplateName), []byte("# layout"), 0644); err != nil {
			t.Fatal(err)
		}
		return root
	}

	indexJob := func(root string) jobModel.Job {
		return jobModel.Job{
			Id:      "index-job",
			TraceId: "index-trace",
			JobType: jobModel.JobTypeIndex,
			JobPayload: jobModel.JobPayload{
				IndexRoot: root,
			},
		}
	}

	t.Run("Indexing_Success_Skips_Template", func(t *testing.T) {
		h := newTestService(t, false)

		var upserted []commonModels.VectorRecord
		h.vec.OnUpsertBatch = func(ctx context.Context, name string, records []commonModels.VectorRecord) (int, error) {
			upserted = append(upserted, records...)
			return len(records), nil
		}

		ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "index-trace")
		result := h.service.IndexDocuments(ctx, indexJob(newDocTree(t)))

		if result.Status != jobModel.JobStatusComplete {
			t.Fatalf("Status got %v, want %v (error: %+v)", result.Status, jobModel.JobStatusComplete, result.Error)
		}
		if len(upserted) == 0 {
			t.Fatal("No records reached the index")
		}
		for _, rec := range upserted {
			if rec.Chunk.Tag != "science" {
				t.Errorf("Record tagged %q, want science", rec.Chunk.Tag)
			}
			if rec.Chunk.FileName == config.ReferenceTemplateName {
				t.Error("Reference template was indexed as a document")
			}
		}
	})

	t.Run("Failure_Collection_Creation", func(t *testing.T) {
		h := newTestService(t, false)
		h.vec.OnEnsure = func(ctx context.Context, name string, dimension uint64) error {
			return errors.New("connection refused")
		}

		ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "index-trace")
		result := h.service.IndexDocuments(ctx, indexJob(newDocTree(t)))

		if result.Status != jobModel.JobStatusError {
			t.Errorf("Status got %v, want %v", result.Status, jobModel.JobStatusError)
		}
	})

	t.Run("Missing_Root_Fails", func(t *testing.T) {
		h := newTestService(t, false)

		ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "index-trace")
		result := h.service.IndexDocuments(ctx, indexJob(filepath.Join(t.TempDir(), "does-not-exist")))

		if result.Status != jobModel.JobStatusError {
			t.Errorf("Status got %v, want %v", result.Status, jobModel.JobStatusError)
		}
	})
}
