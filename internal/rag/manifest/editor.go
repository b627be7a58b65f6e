package manifest

import (
	"context"
	"fmt"

	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

const editPromptTemplate = `You are an AI assistant specialized in modifying text documents according to user feedback.

Your task is to modify a document according to user feedback, while maintaining the document's overall structure.

The document below is a prompt that will be sent to an LLM.
------
%s
------

The feedback below should be used to modify the document.
------
%s
------

Modify the document according to the user feedback.
If the feedback enters in contradiction with some part of the document, favor the feedback over the contradicting part.
Do not remove or add any text enclosed by curly braces.

Your response should be simply the modified document.`

// Editor rewrites the manifest prose to satisfy a feedback directive with a
// single model call. The rewrite fully replaces the stored text; there is no
// diff or merge step.
type Editor struct {
	provider llm.Provider
	store    Store
	logger   *logger_i.Logger
}

func NewEditor(provider llm.Provider, store Store) *Editor {
	return &Editor{
		provider: provider,
		store:    store,
		logger:   logger_i.NewLogger("ManifestEditor"),
	}
}

// ApplyFeedback persists a revised manifest and returns it. A missing or
// unreadable manifest is fatal for this operation; a rewrite that adds or
// removes placeholder tokens is rejected and the stored text kept.
func (e *Editor) ApplyFeedback(ctx context.Context, feedback string) (string, error) {
	revised, err := e.store.Update(func(current string) (string, error) {
		rewritten, err := e.provider.Complete(ctx, fmt.Sprintf(editPromptTemplate, current, feedback))
		if err != nil {
			return "", fmt.Errorf("manifest rewrite call failed: %w", err)
		}
		if !SamePlaceholders(current, rewritten) {
			return "", fmt.Errorf("manifest rewrite altered placeholder tokens, keeping previous manifest")
		}
		return rewritten, nil
	})
	if err != nil {
		e.logger.Error("Failed to apply feedback to manifest", "error", err)
		return "", err
	}
	e.logger.Info("Manifest updated from feedback")
	return revised, nil
}
