// Package pipeline builds retrieval-augmented batch workflows as plain
// workflow graphs: per-document load and chunk stages fan out, embedding
// fans out per document with internal batching, a single store stage fans
// in, and a query stage retrieves context for a final answering agent. The
// package contains no scheduling code; the executor's layer parallelism
// does all the work.
package pipeline
