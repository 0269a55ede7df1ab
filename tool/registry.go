package tool

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/internal/util"
	"github.com/InfinitiBit/graphbit/logging"
	"github.com/InfinitiBit/graphbit/model"
)

// Registry is the validate-and-dispatch table for one agent node's bound
// tool set. Registration is last-write-wins: re-registering a name replaces
// the prior binding (intended for test overrides). Selection logic lives
// entirely in the model's output; the registry only validates and dispatches.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
	sink   core.Sink
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger, sink core.Sink) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if sink == nil {
		sink = core.NoOpSink{}
	}
	return &Registry{tools: map[string]Tool{}, logger: logger, sink: sink}
}

// Register binds a tool under its name, replacing any prior binding.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		r.logger.Warn("tool.re_registered", "tool", t.Name())
	}
	r.tools[t.Name()] = t
}

// Lookup returns the tool bound under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of bound tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the tool catalogue in the form the model consumes.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Dispatch validates and executes the named tool against JSON-encoded
// arguments. Unknown tools and schema violations return a
// *core.ToolArgumentsError without ever reaching a handler; these are
// recoverable from the model's point of view. Handler failures are returned
// as *Error.
func (r *Registry) Dispatch(toolCtx *Context, name, arguments string) (any, error) {
	impl, ok := r.Lookup(name)
	if !ok {
		return nil, &core.ToolArgumentsError{Tool: name, Message: "tool is not registered"}
	}

	args := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return nil, &core.ToolArgumentsError{Tool: name, Message: "arguments are not valid JSON: " + err.Error()}
		}
	}

	if err := util.ValidateArguments(args, impl.Parameters()); err != nil {
		var ve *util.ValidationError
		if errors.As(err, &ve) {
			return nil, &core.ToolArgumentsError{Tool: name, Field: ve.Field, Message: ve.Message}
		}
		return nil, &core.ToolArgumentsError{Tool: name, Message: err.Error()}
	}

	start := time.Now()
	result, err := impl.Call(toolCtx, args)
	elapsed := time.Since(start)

	ev := core.NewEvent(core.EventToolInvoked)
	ev.Tool = name
	ev.NodeID = toolCtx.Exec.NodeID
	ev.RunID = toolCtx.Exec.RunID
	ev.Elapsed = elapsed
	if err != nil {
		ev.Error = err.Error()
		r.logger.Error("tool.invoked", "tool", name, "call_id", toolCtx.CallID, "error", err.Error())
	} else {
		r.logger.Info("tool.invoked", "tool", name, "call_id", toolCtx.CallID, "duration_ms", elapsed.Milliseconds())
	}
	r.sink.Emit(ev)

	return result, err
}
