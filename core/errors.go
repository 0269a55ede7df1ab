package core

import (
	"errors"
	"fmt"
)

// ValidationKind categorizes graph construction failures.
type ValidationKind string

const (
	// ValidationCycle indicates the node/edge set admits no topological order.
	ValidationCycle ValidationKind = "cycle_detected"
	// ValidationDanglingEdge indicates an edge references an unknown node id.
	ValidationDanglingEdge ValidationKind = "dangling_edge"
	// ValidationDuplicateNode indicates two nodes share an id.
	ValidationDuplicateNode ValidationKind = "duplicate_node_id"
	// ValidationEmptyGraph indicates a workflow with no nodes.
	ValidationEmptyGraph ValidationKind = "empty_graph"
	// ValidationBadNode indicates a node with a missing or mismatched payload.
	ValidationBadNode ValidationKind = "invalid_node"
)

// ValidationError reports a structural defect found while sealing a workflow
// graph. It is always fatal and always raised before any execution starts.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow validation failed (%s): %s", e.Kind, e.Detail)
}

// NewValidationError constructs a ValidationError with a formatted detail.
func NewValidationError(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ClientError wraps a failure surfaced by a native client operation (model
// completion, embedding, document load, text split). Transient errors are
// eligible for retry inside the reliability layer; permanent ones surface
// immediately.
type ClientError struct {
	Dependency string // logical dependency name, e.g. "model:openai"
	Transient  bool
	Cause      error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	class := "permanent"
	if e.Transient {
		class = "transient"
	}
	return fmt.Sprintf("client error (%s, %s): %v", e.Dependency, class, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ClientError) Unwrap() error { return e.Cause }

// NewTransientError wraps err as a retryable client error.
func NewTransientError(dependency string, err error) *ClientError {
	return &ClientError{Dependency: dependency, Transient: true, Cause: err}
}

// NewPermanentError wraps err as a non-retryable client error.
func NewPermanentError(dependency string, err error) *ClientError {
	return &ClientError{Dependency: dependency, Transient: false, Cause: err}
}

// IsTransient reports whether err is (or wraps) a transient ClientError.
func IsTransient(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Transient
}

// UpstreamFailure marks a node that was short-circuited because a required
// predecessor reached a failing terminal state. It is recorded without the
// node ever executing and propagates transitively along required edges.
type UpstreamFailure struct {
	NodeID string // the failed predecessor
	Cause  error
}

// Error implements the error interface.
func (e *UpstreamFailure) Error() string {
	return fmt.Sprintf("upstream node %q failed: %v", e.NodeID, e.Cause)
}

// Unwrap exposes the predecessor's error.
func (e *UpstreamFailure) Unwrap() error { return e.Cause }

// ToolArgumentsError reports a tool invocation the registry refused to
// dispatch: either the tool is not registered or the arguments violate its
// input schema. It is recoverable from the model's point of view; the agent
// runtime feeds it back into the conversation so the model may correct
// itself.
type ToolArgumentsError struct {
	Tool    string
	Field   string // offending field, empty for unknown-tool errors
	Message string
}

// Error implements the error interface.
func (e *ToolArgumentsError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid arguments for tool %q: field %q: %s", e.Tool, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid tool call %q: %s", e.Tool, e.Message)
}

var (
	// ErrCircuitOpen is returned when a call is rejected by an open circuit
	// breaker before any attempt is made against the dependency.
	ErrCircuitOpen = errors.New("circuit breaker open: call rejected")

	// ErrNestedExecution is returned when a native client operation is
	// invoked from inside the dynamic extent of another native operation on
	// the same execution context. This is a programming error in handler
	// composition and is never retried or recovered.
	ErrNestedExecution = errors.New("nested native execution context")

	// ErrToolLoopExceeded is returned when an agent node exhausts its
	// maximum number of model iterations without producing a final answer.
	ErrToolLoopExceeded = errors.New("tool loop exceeded maximum iterations")

	// ErrCancelled marks execution results of nodes that never reached a
	// terminal state before the run was cancelled.
	ErrCancelled = errors.New("workflow run cancelled")
)
