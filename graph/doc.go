// Package graph defines the static workflow model: an immutable directed
// acyclic graph of computation nodes sealed by a Builder before any
// execution. Validation happens once at build time; a sealed Workflow is
// read-only and safe for concurrent traversal by executor workers.
package graph
