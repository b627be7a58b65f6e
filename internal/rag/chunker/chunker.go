package chunker

import (
	"fmt"
	"strings"

	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/tokenizer"
)

// Chunker splits raw text into overlapping token windows. Neighboring chunks
// share overlap tokens so retrieval doesn't lose context at window boundaries.
type Chunker struct {
	tok       tokenizer.Tokenizer
	maxTokens int
	overlap   int
}

// New validates the window parameters up front. An overlap >= maxTokens means
// a zero or negative stride, which would never advance the window.
func New(tok tokenizer.Tokenizer, maxTokens, overlap int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("chunker: maxTokens must be positive, got %d", maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, maxTokens) with maxTokens %d", overlap, maxTokens)
	}
	return &Chunker{tok: tok, maxTokens: maxTokens, overlap: overlap}, nil
}

// Split returns the consecutive windows of text. Whitespace-only windows are
// dropped. The window start advances by maxTokens-overlap each step.
func (c *Chunker) Split(text string) []string {
	tokens := c.tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.maxTokens - c.overlap
	var chunks []string
	for i := 0; i < len(tokens); i += stride {
		end := i + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		piece := c.tok.Decode(tokens[i:end])
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, piece)
	}
	return chunks
}
