package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
)

type mockProvider struct {
	onComplete func(ctx context.Context, prompt string) (string, error)
}

func (m *mockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return m.onComplete(ctx, prompt)
}

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		modelOutput  string
		modelErr     error
		message      string
		expectedKind commonModels.MessageType
		expectedText string
	}{
		{
			name:         "Query_PassedThrough",
			modelOutput:  `{"type": "query", "response": "What is a proton?"}`,
			message:      "What is a proton?",
			expectedKind: commonModels.MessageQuery,
			expectedText: "What is a proton?",
		},
		{
			name:         "Feedback_Rewritten",
			modelOutput:  `{"type": "feedback", "response": "Include source citations in every response"}`,
			message:      "Please always cite your sources",
			expectedKind: commonModels.MessageFeedback,
			expectedText: "Include source citations in every response",
		},
		{
			name:         "Fenced_JSON_Accepted",
			modelOutput:  "```json\n{\"type\": \"query\", \"response\": \"hello\"}\n```",
			message:      "hello",
			expectedKind: commonModels.MessageQuery,
			expectedText: "hello",
		},
		{
			name:         "Malformed_JSON_FallsBackToOther",
			modelOutput:  "I think this is probably a query!",
			message:      "is it raining",
			expectedKind: commonModels.MessageOther,
			expectedText: "is it raining",
		},
		{
			name:         "Unknown_Type_FallsBackToOther",
			modelOutput:  `{"type": "complaint", "response": "whatever"}`,
			message:      "original text",
			expectedKind: commonModels.MessageOther,
			expectedText: "original text",
		},
		{
			name:         "Provider_Error_FallsBackToOther",
			modelErr:     errors.New("rate limited"),
			message:      "hi there",
			expectedKind: commonModels.MessageOther,
			expectedText: "hi there",
		},
		{
			name:         "Empty_Response_KeepsOriginalText",
			modelOutput:  `{"type": "query", "response": ""}`,
			message:      "what gives",
			expectedKind: commonModels.MessageQuery,
			expectedText: "what gives",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&mockProvider{
				onComplete: func(ctx context.Context, prompt string) (string, error) {
					return tt.modelOutput, tt.modelErr
				},
			})

			got := c.Classify(context.Background(), tt.message)
			if got.Kind != tt.expectedKind {
				t.Errorf("Kind got %q, want %q", got.Kind, tt.expectedKind)
			}
			if got.Text != tt.expectedText {
				t.Errorf("Text got %q, want %q", got.Text, tt.expectedText)
			}
		})
	}
}

func TestClassify_PromptCarriesMessage(t *testing.T) {
	var seenPrompt string
	c := New(&mockProvider{
		onComplete: func(ctx context.Context, prompt string) (string, error) {
			seenPrompt = prompt
			return `{"type": "other", "response": "x"}`, nil
		},
	})

	c.Classify(context.Background(), "does chunk overlap matter?")
	if !strings.Contains(seenPrompt, "does chunk overlap matter?") {
		t.Error("classification prompt does not embed the user message")
	}
}
