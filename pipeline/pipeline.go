package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/InfinitiBit/graphbit/client"
	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/document"
	"github.com/InfinitiBit/graphbit/embedding"
	"github.com/InfinitiBit/graphbit/graph"
	"github.com/InfinitiBit/graphbit/model"
	"github.com/InfinitiBit/graphbit/splitter"
	"github.com/InfinitiBit/graphbit/store"
)

// Chunk is one immutable piece of a source document, identified by its
// document and position.
type Chunk struct {
	ID    string
	DocID string
	Index int
	Start int
	End   int
	Text  string
}

// Embedding pairs a chunk with its vector.
type Embedding struct {
	ChunkID string
	Vector  []float32
}

// QueryResult is the retrieval stage's output: the ranked matches plus the
// concatenated context handed to the answering agent.
type QueryResult struct {
	Query   string
	Matches []store.Match
}

// String renders the retrieved context, which is what the answer prompt
// template interpolates.
func (r QueryResult) String() string {
	var b strings.Builder
	for i, m := range r.Matches {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(m.Record.Text)
	}
	return b.String()
}

// DefaultAnswerPrompt is the prompt template used when the caller does not
// supply one. It sees the retrieval node's output under .retrieve.
const DefaultAnswerPrompt = "Answer the question using only the context below.\n\n" +
	"Context:\n{{.retrieve}}\n\nQuestion: {{.retrieve.Query}}"

// Options configures a pipeline build.
type Options struct {
	// Loader resolves document refs. Required.
	Loader document.Loader
	// Splitter chunks loaded text. Defaults to a fixed rune splitter.
	Splitter splitter.Splitter
	// Embedder vectorizes chunks and the query. Required.
	Embedder embedding.Embedder
	// Store receives all embeddings and serves retrieval. Defaults to an
	// in-memory store.
	Store store.VectorStore
	// Boundary wraps every native call. Defaults to a runtime with default
	// policies.
	Boundary *client.Runtime
	// Model answers the final question. When nil the pipeline ends at the
	// retrieval node.
	Model model.Model
	// AnswerPrompt overrides DefaultAnswerPrompt.
	AnswerPrompt string
	// BatchSize is how many chunks go into one embedding call. Defaults
	// to 16.
	BatchSize int
	// MaxConcurrentBatches bounds parallel embedding calls within one
	// document's embed node. Defaults to 4.
	MaxConcurrentBatches int
	// TopN is how many chunks retrieval returns. Defaults to 4.
	TopN int
}

func (o *Options) defaults() error {
	if o.Loader == nil {
		return errors.New("pipeline: a document loader is required")
	}
	if o.Embedder == nil {
		return errors.New("pipeline: an embedder is required")
	}
	if o.Splitter == nil {
		s, err := splitter.New()
		if err != nil {
			return err
		}
		o.Splitter = s
	}
	if o.Store == nil {
		o.Store = store.NewMemoryStore()
	}
	if o.Boundary == nil {
		o.Boundary = client.NewRuntime()
	}
	if o.AnswerPrompt == "" {
		o.AnswerPrompt = DefaultAnswerPrompt
	}
	if o.BatchSize < 1 {
		o.BatchSize = 16
	}
	if o.MaxConcurrentBatches < 1 {
		o.MaxConcurrentBatches = 4
	}
	if o.TopN < 1 {
		o.TopN = 4
	}
	return nil
}

// Build assembles the workflow graph for the given document refs and
// question. Node ids follow the stage-ref scheme: "load:<ref>",
// "chunk:<ref>", "embed:<ref>", then "store", "retrieve", and "answer".
// The workflow input is ignored; refs and question are bound at build time.
func Build(refs []string, question string, opts Options) (*graph.Workflow, error) {
	if len(refs) == 0 {
		return nil, errors.New("pipeline: no document refs")
	}
	if err := opts.defaults(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	for _, ref := range refs {
		loadID := "load:" + ref
		chunkID := "chunk:" + ref
		embedID := "embed:" + ref

		b.AddTransform(loadID, "load "+ref, loadNode(opts, ref))
		b.AddTransform(chunkID, "chunk "+ref, chunkNode(opts, loadID))
		b.AddTransform(embedID, "embed "+ref, embedNode(opts, chunkID))
		b.AddEdge(loadID, chunkID)
		b.AddEdge(chunkID, embedID)
	}

	b.AddTransform("store", "store embeddings", storeNode(opts))
	for _, ref := range refs {
		b.AddEdge("embed:"+ref, "store")
	}

	b.AddTransform("retrieve", "retrieve context", retrieveNode(opts, question))
	b.AddEdge("store", "retrieve")

	if opts.Model != nil {
		b.AddAgent("answer", "answer question", &graph.AgentSpec{
			Model:        opts.Model,
			Instructions: "You are a question answering assistant. Be concise and ground every statement in the provided context.",
			Prompt:       opts.AnswerPrompt,
		})
		b.AddEdge("retrieve", "answer")
	}

	return b.Build()
}

// loadNode loads one document through the boundary.
func loadNode(opts Options, ref string) graph.TransformFunc {
	return func(ec *core.ExecContext, _ graph.Inputs) (any, error) {
		out, err := opts.Boundary.Invoke(ec, document.Dependency, func(ctx context.Context) (any, error) {
			return opts.Loader.Load(ctx, ref)
		})
		if err != nil {
			return nil, err
		}
		return out.(*document.Document), nil
	}
}

// chunkNode splits one loaded document through the boundary.
func chunkNode(opts Options, loadID string) graph.TransformFunc {
	return func(ec *core.ExecContext, in graph.Inputs) (any, error) {
		doc, ok := in[loadID].(*document.Document)
		if !ok {
			return nil, fmt.Errorf("pipeline: node %q expected a document from %q", ec.NodeID, loadID)
		}
		out, err := opts.Boundary.Invoke(ec, splitter.Dependency, func(ctx context.Context) (any, error) {
			return opts.Splitter.Split(ctx, doc.Content)
		})
		if err != nil {
			return nil, err
		}

		raw := out.([]splitter.Chunk)
		chunks := make([]Chunk, len(raw))
		for i, c := range raw {
			chunks[i] = Chunk{
				ID:    fmt.Sprintf("%s#%d", doc.ID, c.Index),
				DocID: doc.ID,
				Index: c.Index,
				Start: c.Start,
				End:   c.End,
				Text:  c.Text,
			}
		}
		return chunks, nil
	}
}

// embedNode vectorizes one document's chunks. Chunk counts are unknown at
// graph build time, so batches fan out inside the node: each batch is a
// separate boundary call on its own child context, bounded by
// MaxConcurrentBatches.
func embedNode(opts Options, chunkID string) graph.TransformFunc {
	return func(ec *core.ExecContext, in graph.Inputs) (any, error) {
		chunks, ok := in[chunkID].([]Chunk)
		if !ok {
			return nil, fmt.Errorf("pipeline: node %q expected chunks from %q", ec.NodeID, chunkID)
		}
		if len(chunks) == 0 {
			return []store.Record{}, nil
		}

		batches := batch(chunks, opts.BatchSize)
		records := make([][]store.Record, len(batches))

		g := new(errgroup.Group)
		g.SetLimit(opts.MaxConcurrentBatches)
		for i, chunkBatch := range batches {
			i, chunkBatch := i, chunkBatch
			child := ec.Child(fmt.Sprintf("batch-%d", i))
			g.Go(func() error {
				texts := make([]string, len(chunkBatch))
				for j, c := range chunkBatch {
					texts[j] = c.Text
				}
				out, err := opts.Boundary.Invoke(child, embedding.Dependency, func(ctx context.Context) (any, error) {
					return opts.Embedder.EmbedBatch(ctx, texts)
				})
				if err != nil {
					return err
				}
				vectors := out.([][]float32)
				if len(vectors) != len(chunkBatch) {
					return fmt.Errorf("pipeline: %d vectors for %d chunks", len(vectors), len(chunkBatch))
				}
				rs := make([]store.Record, len(chunkBatch))
				for j, c := range chunkBatch {
					rs[j] = store.Record{
						ID:     c.ID,
						Vector: vectors[j],
						Text:   c.Text,
						Metadata: map[string]any{
							"doc_id": c.DocID,
							"start":  c.Start,
							"end":    c.End,
						},
					}
				}
				records[i] = rs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var flat []store.Record
		for _, rs := range records {
			flat = append(flat, rs...)
		}
		return flat, nil
	}
}

// storeNode fans in every embed node's records and writes them in one shot.
func storeNode(opts Options) graph.TransformFunc {
	return func(ec *core.ExecContext, in graph.Inputs) (any, error) {
		var all []store.Record
		for source, value := range in {
			records, ok := value.([]store.Record)
			if !ok {
				return nil, fmt.Errorf("pipeline: node %q expected records from %q", ec.NodeID, source)
			}
			all = append(all, records...)
		}
		if err := opts.Store.Add(ec.Context, all); err != nil {
			return nil, err
		}
		ec.LogInfo("embeddings stored", "count", len(all))
		return len(all), nil
	}
}

// retrieveNode embeds the question through the boundary and returns the
// top-N matches.
func retrieveNode(opts Options, question string) graph.TransformFunc {
	return func(ec *core.ExecContext, _ graph.Inputs) (any, error) {
		out, err := opts.Boundary.Invoke(ec, embedding.Dependency, func(ctx context.Context) (any, error) {
			return opts.Embedder.Embed(ctx, question)
		})
		if err != nil {
			return nil, err
		}
		matches, err := opts.Store.Search(ec.Context, out.([]float32), opts.TopN)
		if err != nil {
			return nil, err
		}
		return QueryResult{Query: question, Matches: matches}, nil
	}
}

// batch cuts chunks into slices of at most size elements.
func batch(chunks []Chunk, size int) [][]Chunk {
	var out [][]Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		out = append(out, chunks[start:end])
	}
	return out
}
