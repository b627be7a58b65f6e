package gemini

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var (
	logger       *logger_i.Logger
	once         sync.Once
	geminiClient *llmClient
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

// GetGeminiClient is the alternative completion backend, selected with
// LLM_PROVIDER=gemini. Needs GEMINI_API_KEY.
func GetGeminiClient(ctx context.Context) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, config.GeminiModelName, os.Getenv("GEMINI_API_KEY"))
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
}

func (c *llmClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](config.ModelTemperature),
			MaxOutputTokens: config.CompletionMaxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	return result.Text(), nil
}
