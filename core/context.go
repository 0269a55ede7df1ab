package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/InfinitiBit/graphbit/logging"
)

// ExecContext is the per-dispatch execution scope handed to a node's
// computation by the executor. Exactly one ExecContext exists per dispatched
// unit of work; it is never shared between concurrently running nodes.
//
// Its central job is the reentrancy token: a native client operation running
// under this context marks it in-flight, and any attempt to start a second
// native operation before the first returns fails fast with
// ErrNestedExecution instead of deadlocking. Tool handlers that legitimately
// need native calls receive a fresh child context (see Child), which is its
// own independent token.
type ExecContext struct {
	Context context.Context
	RunID   string
	NodeID  string

	inNative atomic.Bool

	*loggerAdapter
}

// NewExecContext constructs an execution context for one dispatched node.
func NewExecContext(ctx context.Context, runID, nodeID string, logger logging.Logger) *ExecContext {
	return &ExecContext{
		Context:       ctx,
		RunID:         runID,
		NodeID:        nodeID,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done mirrors context.Context's Done.
func (ec *ExecContext) Done() <-chan struct{} { return ec.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (ec *ExecContext) Err() error { return ec.Context.Err() }

// EnterNative claims the reentrancy token. It must be paired with ExitNative.
// Claiming an already-claimed token is the fatal nested-execution condition.
func (ec *ExecContext) EnterNative(dependency string) error {
	if !ec.inNative.CompareAndSwap(false, true) {
		return fmt.Errorf("dependency %q invoked from within an in-flight native call on node %q: %w",
			dependency, ec.NodeID, ErrNestedExecution)
	}
	return nil
}

// ExitNative releases the reentrancy token.
func (ec *ExecContext) ExitNative() { ec.inNative.Store(false) }

// InNative reports whether a native operation is currently in flight on this
// context.
func (ec *ExecContext) InNative() bool { return ec.inNative.Load() }

// Child derives a fresh, independent execution context labeled with a
// sub-identifier. The child shares the run id, cancellation and logger but
// carries its own reentrancy token, making it the legal context for tool
// handlers dispatched while the parent node is mid-iteration.
func (ec *ExecContext) Child(label string) *ExecContext {
	return &ExecContext{
		Context:       ec.Context,
		RunID:         ec.RunID,
		NodeID:        ec.NodeID + "." + label,
		loggerAdapter: ec.loggerAdapter,
	}
}
