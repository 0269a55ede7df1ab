package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/openai/openai-go"

	"github.com/InfinitiBit/graphbit/core"
)

// OpenAIOptions configure the OpenAI embedding adapter.
type OpenAIOptions struct {
	Model      string
	Dimensions int
}

// OpenAIEmbedder implements Embedder on the OpenAI Embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAIEmbedder creates an embedder using the official client (API key
// from environment).
func NewOpenAIEmbedder(optFns ...func(o *OpenAIOptions)) *OpenAIEmbedder {
	client := openai.NewClient()
	return NewOpenAIEmbedderFromClient(&client, optFns...)
}

// NewOpenAIEmbedderFromClient creates an embedder from an existing client.
func NewOpenAIEmbedderFromClient(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAIEmbedder {
	opts := OpenAIOptions{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 1536,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAIEmbedder{client: client, opts: opts}
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.opts.Dimensions }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder with a single API call for the whole batch.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.opts.Model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, core.NewPermanentError(Dependency,
			fmt.Errorf("openai: %d embeddings returned for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		out[item.Index] = vec
	}
	return out, nil
}

// classify maps SDK errors to the reliability taxonomy. Rate limits, server
// faults, timeouts and network errors are transient; everything else is
// permanent.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 408 || apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return core.NewTransientError(Dependency, err)
		}
		return core.NewPermanentError(Dependency, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewTransientError(Dependency, err)
	}
	return core.NewTransientError(Dependency, err)
}
