package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinitiBit/graphbit/agent"
	"github.com/InfinitiBit/graphbit/document"
	"github.com/InfinitiBit/graphbit/embedding"
	"github.com/InfinitiBit/graphbit/executor"
	"github.com/InfinitiBit/graphbit/model"
	"github.com/InfinitiBit/graphbit/splitter"
	"github.com/InfinitiBit/graphbit/store"
)

// The mock embedder is hash based, so retrieval only ranks exact text
// repeats above everything else. The "go" document is kept to a single
// chunk that exactly matches the test query.
func testDocs() map[string]string {
	return map[string]string{
		"go":     "Goroutines make concurrency cheap.",
		"python": "Python is a dynamically typed interpreted language. It is popular for scripting and for data science work across many fields.",
		"rust":   "Rust is a systems language focused on memory safety without garbage collection.",
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	split, err := splitter.New(splitter.WithChunkSize(60), splitter.WithOverlap(10))
	require.NoError(t, err)
	return Options{
		Loader:   document.NewInlineLoader(testDocs()),
		Splitter: split,
		Embedder: embedding.NewMockEmbedder(32),
		TopN:     2,
	}
}

func TestBuildGraphShape(t *testing.T) {
	wf, err := Build([]string{"go", "python", "rust"}, "what is Go?", testOptions(t))
	require.NoError(t, err)

	// 3 refs x (load, chunk, embed) + store + retrieve.
	assert.Equal(t, 11, wf.Len())

	layers := wf.TopologicalLayers()
	require.Len(t, layers, 5)
	assert.Equal(t, []string{"load:go", "load:python", "load:rust"}, layers[0])
	assert.Equal(t, []string{"chunk:go", "chunk:python", "chunk:rust"}, layers[1])
	assert.Equal(t, []string{"store"}, layers[3])
	assert.Equal(t, []string{"retrieve"}, layers[4])
}

func TestBuildWithModelAddsAnswerNode(t *testing.T) {
	opts := testOptions(t)
	opts.Model = model.NewScriptedModel("chat").Reply("whatever")

	wf, err := Build([]string{"go"}, "q", opts)
	require.NoError(t, err)
	_, ok := wf.Node("answer")
	assert.True(t, ok)
	layers := wf.TopologicalLayers()
	assert.Equal(t, []string{"answer"}, layers[len(layers)-1])
}

func TestBuildRejectsMissingPieces(t *testing.T) {
	_, err := Build(nil, "q", testOptions(t))
	assert.Error(t, err)

	opts := testOptions(t)
	opts.Loader = nil
	_, err = Build([]string{"go"}, "q", opts)
	assert.Error(t, err)

	opts = testOptions(t)
	opts.Embedder = nil
	_, err = Build([]string{"go"}, "q", opts)
	assert.Error(t, err)
}

func TestPipelineEndToEndRetrieval(t *testing.T) {
	opts := testOptions(t)
	vs := store.NewMemoryStore()
	opts.Store = vs

	wf, err := Build([]string{"go", "python", "rust"}, "Goroutines make concurrency cheap.", opts)
	require.NoError(t, err)

	res, err := executor.New(executor.WithWorkers(6)).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), "run failed: %v", res.FirstError())

	stored, ok := res.Output("store")
	require.True(t, ok)
	assert.Equal(t, vs.Len(), stored)
	assert.Greater(t, vs.Len(), 3, "every doc splits into multiple chunks")

	out, ok := res.Output("retrieve")
	require.True(t, ok)
	qr := out.(QueryResult)
	require.Len(t, qr.Matches, 2)
	// The verbatim chunk embeds identically to the query, so it must rank
	// first with a perfect score.
	assert.Contains(t, qr.Matches[0].Record.Text, "concurrency cheap")
	assert.InDelta(t, 1.0, float64(qr.Matches[0].Score), 1e-4)
}

func TestPipelineEndToEndWithAnswer(t *testing.T) {
	opts := testOptions(t)
	m := model.NewScriptedModel("chat").Reply("Goroutines keep concurrency cheap in Go.")
	opts.Model = m

	wf, err := Build([]string{"go", "python"}, "Goroutines make concurrency cheap.", opts)
	require.NoError(t, err)

	exec := executor.New(
		executor.WithWorkers(4),
		executor.WithAgentRunner(agent.New()),
	)
	res, err := exec.Run(context.Background(), wf, nil)
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), "run failed: %v", res.FirstError())

	answer, ok := res.Output("answer")
	require.True(t, ok)
	assert.Contains(t, answer.(string), "Goroutines")

	// The rendered prompt must carry both the retrieved context and the
	// question.
	require.Equal(t, 1, m.Calls())
	prompt := m.Requests()[0].Messages[0].Content
	assert.Contains(t, prompt, "Question: Goroutines make concurrency cheap.")
	assert.True(t, strings.Contains(prompt, "concurrency"), "retrieved context present")
}

func TestPipelineEmptyDocumentYieldsNoRecords(t *testing.T) {
	opts := testOptions(t)
	opts.Loader = document.NewInlineLoader(map[string]string{"empty": ""})
	vs := store.NewMemoryStore()
	opts.Store = vs

	wf, err := Build([]string{"empty"}, "anything", opts)
	require.NoError(t, err)

	res, err := executor.New().Run(context.Background(), wf, nil)
	require.NoError(t, err)
	// Retrieval against an empty store still succeeds with zero matches.
	require.True(t, res.IsSuccess(), "run failed: %v", res.FirstError())
	out, _ := res.Output("retrieve")
	assert.Empty(t, out.(QueryResult).Matches)
	assert.Equal(t, 0, vs.Len())
}

func TestPipelineFailedLoadShortCircuits(t *testing.T) {
	opts := testOptions(t)
	opts.Loader = document.NewInlineLoader(map[string]string{"good": "some text here"})

	wf, err := Build([]string{"good", "missing"}, "q", opts)
	require.NoError(t, err)

	res, err := executor.New(executor.WithWorkers(4)).Run(context.Background(), wf, nil)
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())

	assert.Equal(t, executor.StatusFailed, res.Results["load:missing"].Status)
	assert.Equal(t, executor.StatusFailed, res.Results["chunk:missing"].Status)
	assert.Equal(t, executor.StatusFailed, res.Results["store"].Status)
	// The healthy branch still ran to completion.
	assert.Equal(t, executor.StatusSucceeded, res.Results["embed:good"].Status)
}

func TestBatchSplitsEvenly(t *testing.T) {
	chunks := make([]Chunk, 10)
	batches := batch(chunks, 4)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 4)
	assert.Len(t, batches[1], 4)
	assert.Len(t, batches[2], 2)
}
