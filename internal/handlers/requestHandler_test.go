package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rodrigocampos/knowledge-base-rag/internal/api"
	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/data/store"
	"github.com/rodrigocampos/knowledge-base-rag/internal/job"
)

func feedbackRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	return r.WithContext(context.WithValue(r.Context(), config.TRACE_ID_KEY, "feedback-trace"))
}

func TestGetFeedbackHandler(t *testing.T) {
	feedbackLog := store.InitInMemoryFeedbackLog()
	InitJobHandler(&job.Service{FeedbackLog: feedbackLog})

	directives := []string{
		"answer in short sentences",
		"always cite the source file",
		"prefer bullet lists",
	}
	for _, d := range directives {
		if err := feedbackLog.AppendFeedback(context.Background(), d); err != nil {
			t.Fatalf("seeding feedback log: %v", err)
		}
	}

	t.Run("Limit returns the newest directives oldest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		GetFeedbackHandler(rec, feedbackRequest(t, "/feedback?limit=2"))

		if rec.Code != http.StatusOK {
			t.Fatalf("Status got %d, want %d", rec.Code, http.StatusOK)
		}
		var resp api.FeedbackLogResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(resp.Feedback) != 2 {
			t.Fatalf("Feedback got %v, want the two newest directives", resp.Feedback)
		}
		if resp.Feedback[0] != "always cite the source file" || resp.Feedback[1] != "prefer bullet lists" {
			t.Errorf("Feedback got %v, want the newest two oldest first", resp.Feedback)
		}
	})

	t.Run("Default limit covers a short log", func(t *testing.T) {
		rec := httptest.NewRecorder()
		GetFeedbackHandler(rec, feedbackRequest(t, "/feedback"))

		if rec.Code != http.StatusOK {
			t.Fatalf("Status got %d, want %d", rec.Code, http.StatusOK)
		}
		var resp api.FeedbackLogResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(resp.Feedback) != len(directives) {
			t.Errorf("Feedback got %v, want all %d directives", resp.Feedback, len(directives))
		}
	})

	t.Run("Malformed limit is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		GetFeedbackHandler(rec, feedbackRequest(t, "/feedback?limit=minus-one"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Status got %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}
