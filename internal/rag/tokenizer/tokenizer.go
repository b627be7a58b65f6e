package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts, encodes and decodes text the way the chat model does.
// The chunker and the context builder both budget in these tokens.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Count(text string) int
}

type tiktokenAdapter struct {
	enc *tiktoken.Tiktoken
}

// ForModel returns the tokenizer matching the given chat model.
func ForModel(model string) (Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("no encoding for model %q: %w", model, err)
	}
	return &tiktokenAdapter{enc: enc}, nil
}

func (t *tiktokenAdapter) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenAdapter) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *tiktokenAdapter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
