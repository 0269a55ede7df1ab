package splitter

import (
	"context"
	"fmt"

	"github.com/InfinitiBit/graphbit/core"
)

// Dependency is the logical dependency name for text splitting, used by the
// circuit breaker registry.
const Dependency = "splitter"

// Chunk is one contiguous slice of a source text. Start and End are rune
// offsets into the original; Text is the slice itself.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Splitter cuts a text into chunks.
type Splitter interface {
	Split(ctx context.Context, text string) ([]Chunk, error)
}

// Options configure a fixed-size splitter.
type Options struct {
	// ChunkSize is the maximum chunk length. Interpreted in runes, or in
	// tokens when a Tokenizer is set. Defaults to 512.
	ChunkSize int
	// Overlap is how much of each chunk's tail repeats at the head of the
	// next, in the same unit as ChunkSize. Defaults to 64.
	Overlap int
	// Tokenizer, when set, switches the unit from runes to tokens.
	Tokenizer Tokenizer
}

// FixedSplitter produces fixed-size chunks with overlap. With no tokenizer
// it slices on rune boundaries; with one it slices on token boundaries and
// decodes each window back to text.
type FixedSplitter struct {
	opts Options
}

// New creates a fixed-size splitter.
func New(optFns ...func(o *Options)) (*FixedSplitter, error) {
	opts := Options{ChunkSize: 512, Overlap: 64}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ChunkSize < 1 {
		return nil, fmt.Errorf("splitter: chunk size must be positive, got %d", opts.ChunkSize)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		return nil, fmt.Errorf("splitter: overlap %d must be in [0, chunk size)", opts.Overlap)
	}
	return &FixedSplitter{opts: opts}, nil
}

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(n int) func(o *Options) {
	return func(o *Options) { o.ChunkSize = n }
}

// WithOverlap sets the inter-chunk overlap.
func WithOverlap(n int) func(o *Options) {
	return func(o *Options) { o.Overlap = n }
}

// WithTokenizer switches sizing from runes to tokens.
func WithTokenizer(t Tokenizer) func(o *Options) {
	return func(o *Options) { o.Tokenizer = t }
}

// Split implements Splitter.
func (s *FixedSplitter) Split(ctx context.Context, text string) ([]Chunk, error) {
	if text == "" {
		return nil, nil
	}
	if s.opts.Tokenizer != nil {
		return s.splitTokens(ctx, text)
	}
	return s.splitRunes(text), nil
}

func (s *FixedSplitter) splitRunes(text string) []Chunk {
	runes := []rune(text)
	step := s.opts.ChunkSize - s.opts.Overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + s.opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func (s *FixedSplitter) splitTokens(ctx context.Context, text string) ([]Chunk, error) {
	tokens, err := s.opts.Tokenizer.Encode(text)
	if err != nil {
		return nil, core.NewPermanentError(Dependency, err)
	}
	step := s.opts.ChunkSize - s.opts.Overlap

	var chunks []Chunk
	runeOffset := 0
	for start := 0; start < len(tokens); start += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + s.opts.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		piece, err := s.opts.Tokenizer.Decode(tokens[start:end])
		if err != nil {
			return nil, core.NewPermanentError(Dependency, err)
		}
		width := len([]rune(piece))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: runeOffset,
			End:   runeOffset + width,
			Text:  piece,
		})
		if end == len(tokens) {
			break
		}
		// Advance by the non-overlapping prefix of this window.
		prefix, err := s.opts.Tokenizer.Decode(tokens[start : start+step])
		if err != nil {
			return nil, core.NewPermanentError(Dependency, err)
		}
		runeOffset += len([]rune(prefix))
	}
	return chunks, nil
}
