// Package store provides vector storage and similarity search for batch
// pipelines. The in-memory implementation keeps everything behind one lock
// and ranks with cosine similarity by default; the distance function is
// pluggable.
package store
