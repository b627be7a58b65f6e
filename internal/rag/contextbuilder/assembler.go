package contextbuilder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
	"github.com/rodrigocampos/knowledge-base-rag/internal/rag/tokenizer"
)

// ErrNoContext means nothing fit the budget. Callers must handle it instead
// of passing an empty context downstream.
var ErrNoContext = errors.New("no relevant context fits the budget")

type Assembler struct {
	tok tokenizer.Tokenizer
}

func New(tok tokenizer.Tokenizer) *Assembler {
	return &Assembler{tok: tok}
}

// Assemble walks hits in their given (similarity-descending) order and
// concatenates whole chunks until the next one would overflow the budget.
// It stops at the first overflow rather than skipping ahead, so the included
// chunks always form a prefix of the ranking. Each chunk is labeled with the
// file it came from.
func (a *Assembler) Assemble(hits []commonModels.SearchHit, maxContextTokens int) (string, error) {
	var pieces []string
	totalTokens := 0

	for _, hit := range hits {
		tokens := a.tok.Count(hit.Text)
		if totalTokens+tokens > maxContextTokens {
			break
		}
		pieces = append(pieces, fmt.Sprintf("From %s:\n%s", hit.FileName, hit.Text))
		totalTokens += tokens
	}

	if len(pieces) == 0 {
		return "", ErrNoContext
	}
	return strings.Join(pieces, "\n\n"), nil
}
