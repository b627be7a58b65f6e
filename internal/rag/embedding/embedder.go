package embedding

import "context"

// Embedder turns text into fixed-dimension vectors. Implementations do no
// retrying of their own; transient failures propagate to the orchestrator,
// which owns the retry policy.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
