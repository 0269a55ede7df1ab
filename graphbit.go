// Package graphbit provides a high-level façade over the workflow engine:
// graph construction, the layer-parallel executor, the reliability boundary
// around native clients, and the agent runtime. Most applications interact
// with this package by:
//  1. Creating an Engine via New() (optionally overriding policies and sinks)
//  2. Building a workflow with graph.NewBuilder (transform and agent nodes)
//  3. Running it with Run and inspecting the per-node results
//
// The façade only wires packages together; all behavior lives in executor,
// client, agent and their collaborators. Defaults are safe for local
// development and testing.
package graphbit

import (
	"context"

	"github.com/InfinitiBit/graphbit/agent"
	"github.com/InfinitiBit/graphbit/client"
	"github.com/InfinitiBit/graphbit/config"
	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/executor"
	"github.com/InfinitiBit/graphbit/graph"
	"github.com/InfinitiBit/graphbit/logging"
)

// Version is the library version.
const Version = "0.1.0"

// Options configures an Engine.
type Options struct {
	// Config carries the tunable policies. Zero values are normalized to
	// defaults.
	Config config.Config
	// Logger receives diagnostics from every layer. Defaults to NoOp.
	Logger logging.Logger
	// Sink receives engine events. Defaults to NoOp.
	Sink core.Sink
}

// Engine aggregates the executor, the reliability boundary and the agent
// runtime behind one handle. It is safe for concurrent use; one Engine can
// run many workflows.
type Engine struct {
	opts     Options
	boundary *client.Runtime
	executor *executor.Executor
}

// New creates an Engine with optional overrides.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
		Sink:   core.NoOpSink{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Config.Normalize()

	boundary := client.NewRuntime(
		client.WithRetryPolicy(client.RetryPolicy{
			MaxAttempts: opts.Config.Retry.MaxAttempts,
			BaseDelay:   opts.Config.Retry.BaseDelay.Std(),
			MaxDelay:    opts.Config.Retry.MaxDelay.Std(),
			Multiplier:  opts.Config.Retry.Multiplier,
			Jitter:      opts.Config.Retry.Jitter,
			Timeout:     opts.Config.Retry.Timeout.Std(),
		}),
		client.WithBreakerConfig(client.BreakerConfig{
			Threshold: opts.Config.Breaker.Threshold,
			Cooldown:  opts.Config.Breaker.Cooldown.Std(),
		}),
		client.WithLogger(opts.Logger),
		client.WithSink(opts.Sink),
	)

	agents := agent.New(
		agent.WithBoundary(boundary),
		agent.WithMaxIterations(opts.Config.Agent.MaxIterations),
		agent.WithLogger(opts.Logger),
		agent.WithSink(opts.Sink),
	)

	exec := executor.New(
		executor.WithWorkers(opts.Config.Executor.Workers),
		executor.WithAgentRunner(agents),
		executor.WithLogger(opts.Logger),
		executor.WithSink(opts.Sink),
	)

	return &Engine{opts: opts, boundary: boundary, executor: exec}
}

// Boundary exposes the shared reliability runtime, for transforms that call
// native clients directly.
func (e *Engine) Boundary() *client.Runtime { return e.boundary }

// Run executes a sealed workflow to quiescence and returns the per-node
// results.
func (e *Engine) Run(ctx context.Context, wf *graph.Workflow, input any) (*executor.Result, error) {
	return e.executor.Run(ctx, wf, input)
}
