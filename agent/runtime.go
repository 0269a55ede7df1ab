package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/InfinitiBit/graphbit/client"
	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/graph"
	"github.com/InfinitiBit/graphbit/internal/util"
	"github.com/InfinitiBit/graphbit/logging"
	"github.com/InfinitiBit/graphbit/model"
	"github.com/InfinitiBit/graphbit/tool"
)

// DefaultMaxIterations caps the model/tool loop when the node's spec does
// not set its own bound.
const DefaultMaxIterations = 8

// Options configures a Runtime.
type Options struct {
	// Boundary wraps every model call in the reliability layer. Required.
	Boundary *client.Runtime
	// MaxIterations is the loop cap applied when a node does not set one.
	MaxIterations int
	// Logger receives loop diagnostics.
	Logger logging.Logger
	// Sink receives tool invocation events.
	Sink core.Sink
}

// Option mutates Options.
type Option func(*Options)

// WithBoundary sets the reliability layer for model calls.
func WithBoundary(b *client.Runtime) Option {
	return func(o *Options) { o.Boundary = b }
}

// WithMaxIterations sets the default loop cap.
func WithMaxIterations(n int) Option {
	return func(o *Options) { o.MaxIterations = n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithSink sets the event sink.
func WithSink(s core.Sink) Option {
	return func(o *Options) { o.Sink = s }
}

// Runtime executes agent node payloads. It is stateless per call and safe
// for concurrent use by executor workers.
type Runtime struct {
	boundary      *client.Runtime
	maxIterations int
	logger        logging.Logger
	sink          core.Sink
}

// New creates an agent runtime. When no boundary is supplied one with
// default retry and breaker policies is created.
func New(optFns ...Option) *Runtime {
	opts := Options{MaxIterations: DefaultMaxIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Sink == nil {
		opts.Sink = core.NoOpSink{}
	}
	if opts.Boundary == nil {
		opts.Boundary = client.NewRuntime(
			client.WithLogger(opts.Logger),
			client.WithSink(opts.Sink),
		)
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Runtime{
		boundary:      opts.Boundary,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
		sink:          opts.Sink,
	}
}

// Execute runs one agent node to completion and returns the model's final
// answer. Model calls go through the reliability boundary on the node's own
// execution context; tool handlers run on fresh child contexts so they may
// legally make native calls of their own.
func (r *Runtime) Execute(execCtx *core.ExecContext, spec *graph.AgentSpec, in graph.Inputs) (any, error) {
	if spec == nil || spec.Model == nil {
		return nil, errors.New("agent: spec has no model")
	}

	prompt, err := util.RenderTemplate(spec.Prompt, templateData(in))
	if err != nil {
		return nil, fmt.Errorf("agent: rendering prompt for node %q: %w", execCtx.NodeID, err)
	}

	registry := tool.NewRegistry(r.logger, r.sink)
	for _, t := range spec.Tools {
		registry.Register(t)
	}

	req := model.Request{
		Instructions: spec.Instructions,
		Tools:        registry.Definitions(),
		Messages: []model.Message{
			{Role: model.RoleUser, Content: prompt},
		},
	}

	limit := spec.MaxIterations
	if limit < 1 {
		limit = r.maxIterations
	}
	dependency := spec.Model.Info().Dependency()

	for iteration := 1; iteration <= limit; iteration++ {
		out, err := r.boundary.Invoke(execCtx, dependency, func(ctx context.Context) (any, error) {
			return spec.Model.Complete(ctx, req)
		})
		if err != nil {
			return nil, err
		}
		resp, ok := out.(*model.Response)
		if !ok || resp == nil {
			return nil, core.NewPermanentError(dependency,
				fmt.Errorf("model %q returned no response", spec.Model.Info().Name))
		}

		if resp.IsFinal() {
			r.logger.Debug("agent finished", "node_id", execCtx.NodeID,
				"iterations", iteration)
			return resp.Content, nil
		}

		req.Messages = append(req.Messages, model.Message{
			Role:      model.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			req.Messages = append(req.Messages, r.runTool(execCtx, registry, call))
		}
	}

	return nil, fmt.Errorf("agent node %q did not converge within %d iterations: %w",
		execCtx.NodeID, limit, core.ErrToolLoopExceeded)
}

// runTool dispatches one tool call and folds the outcome into a tool-role
// message. Argument and handler errors are recoverable: they go back to the
// model as the tool result so it can correct itself on the next iteration.
func (r *Runtime) runTool(execCtx *core.ExecContext, registry *tool.Registry, call model.ToolCall) model.Message {
	toolCtx := tool.NewContext(execCtx.Child("tool:"+call.Name), call.ID)
	result, err := registry.Dispatch(toolCtx, call.Name, call.Arguments)
	if err != nil {
		r.logger.Warn("tool call failed", "node_id", execCtx.NodeID,
			"tool", call.Name, "error", err.Error())
		return model.Message{
			Role:       model.RoleTool,
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    fmt.Sprintf("error: %v", err),
		}
	}
	return model.Message{
		Role:       model.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    encodeResult(result),
	}
}

// encodeResult serializes a tool result for the model. Strings pass through
// untouched; everything else is JSON.
func encodeResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}

// templateData converts Inputs into the map the prompt template renders
// over.
func templateData(in graph.Inputs) map[string]any {
	data := make(map[string]any, len(in)+1)
	for k, v := range in {
		data[k] = v
	}
	if v, ok := in[graph.InputKey]; ok {
		// Friendlier alias for entry-node prompts.
		data["input"] = v
	}
	return data
}
