package llm

import "context"

// Provider issues a single completion call. The whole pipeline is built on
// one-shot prompts, so the surface stays this small.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
