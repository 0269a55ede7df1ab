package splitter

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer encodes text to token ids and back. Implementations must be
// safe for concurrent use.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
}

// TiktokenTokenizer adapts a tiktoken BPE encoding to the Tokenizer
// interface.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a tokenizer for the named encoding, e.g.
// "cl100k_base".
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("splitter: loading encoding %q: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// NewTiktokenForModel creates a tokenizer matching the named model, e.g.
// "gpt-4o-mini".
func NewTiktokenForModel(modelName string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("splitter: no encoding for model %q: %w", modelName, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// Encode implements Tokenizer.
func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	return t.enc.Encode(text, nil, nil), nil
}

// Decode implements Tokenizer.
func (t *TiktokenTokenizer) Decode(tokens []int) (string, error) {
	return t.enc.Decode(tokens), nil
}
