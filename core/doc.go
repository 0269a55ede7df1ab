// Package core contains the shared kernel of GraphBit: the error taxonomy
// used across all layers, the per-dispatch execution context that enforces
// the native-call reentrancy invariant, and the observability event types
// emitted by the engine to an injected sink.
//
// Nothing in core performs I/O; it is imported by every other package and
// imports only logging.
package core
