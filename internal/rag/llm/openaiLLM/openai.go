package openaiLLM

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/customHttpClient"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm"
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

func GetOpenAIClient() llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_llm")
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
			model: config.ChatModel,
		}
		logger.Info("OpenAI completion client created", "model", config.ChatModel)
	})

	if shared == nil {
		return nil
	}
	return shared
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	res, err := c.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(config.CompletionMaxTokens),
		Temperature: openai.Float(config.ModelTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("completion response carried no choices")
	}
	return res.Choices[0].Message.Content, nil
}
