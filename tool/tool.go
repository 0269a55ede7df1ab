package tool

import (
	"fmt"

	"github.com/InfinitiBit/graphbit/core"
)

// Tool is a named, schema-validated capability a model may invoke.
//
// Implementations should provide clear descriptions (the model selects tools
// by matching intent against them), define a minimal JSON schema for
// Parameters, and be safe for concurrent use: a tool bound to a workflow may
// be called from several agent nodes at once.
type Tool interface {
	// Name returns the unique identifier used in function call requests.
	Name() string

	// Description returns the natural-language description shown to models.
	Description() string

	// Parameters returns a JSON schema describing accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with already-validated arguments. The Context
	// carries a fresh execution scope, so handlers may legally invoke
	// native client operations through it.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// Context is the per-invocation scope handed to a tool handler. Exec is a
// fresh child execution context (its own reentrancy token), never the agent
// node's in-flight model-call context.
type Context struct {
	Exec   *core.ExecContext
	CallID string // correlates the model's tool call request with its result
}

// NewContext creates a tool invocation context.
func NewContext(exec *core.ExecContext, callID string) *Context {
	return &Context{Exec: exec, CallID: callID}
}

// Error wraps a tool handler execution failure with the tool's identity for
// uniform downstream handling.
type Error struct {
	Tool    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }
