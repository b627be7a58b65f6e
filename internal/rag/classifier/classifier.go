package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/llm"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

const promptTemplate = `Analyze if the following message is a feedback or a query.
Use the definitions below to know how to differentiate between the two:
- Query:
    A question where the user wants to know some type of information.
- Feedback:
    A comment where the user instructs you on how to improve the quality of your responses.
    Sometimes this can come in the form of a question, where the user is politely asking if you can improve your responses in a given way.

Examples:
You should make your responses longer - feedback
What is the capital of France? - query
What is the difference between a neutron and a proton? - query
Can you include citations in your responses? - feedback

If you don't know whether the message is a feedback or a query, classify it as 'other'.

# MESSAGE #
%s
##########

If the message is a feedback, edit it to look like a prompt targeted towards LLMs: specific, direct, and concise. Respond with the JSON structure below:

{"type": "feedback", "response": "[message edited as a prompt]"}

If the message is a query, respond with:

{"type": "query", "response": "[message as-is]"}

If the message is neither a query nor a feedback, respond with:

{"type": "other", "response": "[message as-is]"}
`

// Classifier labels a user turn as query, feedback or other with one model
// call. Its output is advisory: anything unparseable degrades to "other"
// with the original message, never to an error.
type Classifier struct {
	provider llm.Provider
	logger   *logger_i.Logger
}

func New(provider llm.Provider) *Classifier {
	return &Classifier{
		provider: provider,
		logger:   logger_i.NewLogger("Classifier"),
	}
}

func (c *Classifier) Classify(ctx context.Context, message string) commonModels.ClassifiedMessage {
	fallback := commonModels.ClassifiedMessage{Kind: commonModels.MessageOther, Text: message}

	raw, err := c.provider.Complete(ctx, fmt.Sprintf(promptTemplate, message))
	if err != nil {
		c.logger.Error("Could not determine the type of message", "error", err)
		return fallback
	}

	var parsed commonModels.ClassifiedMessage
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		c.logger.Warn("Classifier output was not valid JSON, defaulting to other", "error", err)
		return fallback
	}

	switch parsed.Kind {
	case commonModels.MessageQuery, commonModels.MessageFeedback, commonModels.MessageOther:
	default:
		c.logger.Warn("Classifier returned an unknown type, defaulting to other", "type", parsed.Kind)
		return fallback
	}
	if parsed.Text == "" {
		parsed.Text = message
	}
	return parsed
}

// Models sometimes wrap JSON in a markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
