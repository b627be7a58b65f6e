package openaiEmbedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/customHttpClient"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/embedding"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var (
	logger *logger_i.Logger
	once   sync.Once
	shared *client
)

type client struct {
	openai openai.Client
	model  string
}

// GetOpenAIEmbeddingClient builds the process-wide embedding client from
// OPENAI_API_KEY. Returns nil when the key is missing so main can refuse
// to start rather than fail on the first call.
func GetOpenAIEmbeddingClient() embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is not set")
			return
		}
		shared = &client{
			openai: openai.NewClient(
				option.WithAPIKey(apiKey),
				option.WithHTTPClient(customHttpClient.Pooled()),
			),
			model: config.EmbeddingModel,
		}
		logger.Info("OpenAI embedding client created", "model", config.EmbeddingModel)
	})

	if shared == nil {
		return nil
	}
	return shared
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: c.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("embedding response carried no vector")
	}
	return toFloat32(res.Data[0].Embedding), nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	res, err := c.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: c.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("batch embedding call failed: %w", err)
	}
	if len(res.Data) != len(texts) {
		return nil, fmt.Errorf("batch embedding returned %d vectors for %d inputs", len(res.Data), len(texts))
	}
	vectors := make([][]float32, len(res.Data))
	for i, d := range res.Data {
		vectors[i] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
