package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/graph"
	"github.com/InfinitiBit/graphbit/logging"
)

// Status is a node's lifecycle state within one run.
type Status string

const (
	// StatusPending means the node's layer has not been reached yet.
	StatusPending Status = "pending"
	// StatusRunning means the node is on a worker.
	StatusRunning Status = "running"
	// StatusSucceeded means the node finished and produced an output.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the node's computation returned an error, or a
	// required upstream failed.
	StatusFailed Status = "failed"
	// StatusSkipped means an activation condition ruled the node out.
	StatusSkipped Status = "skipped"
	// StatusCancelled means the run was cancelled before or during the
	// node's execution.
	StatusCancelled Status = "cancelled"
)

// NodeResult is one node's outcome. Output is set only on success; Err only
// on failure or cancellation.
type NodeResult struct {
	NodeID     string
	Status     Status
	Output     any
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the node's wall-clock execution time, zero if it never
// ran.
func (r NodeResult) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result is the outcome of one workflow run: a terminal state for every
// node.
type Result struct {
	RunID   string
	Results map[string]NodeResult
	Err     error // set when the run was cancelled

	// required holds the nodes reachable from the entries over required
	// edges alone. Best-effort branches fall outside this set.
	required map[string]struct{}
}

// IsSuccess reports whether the run completed and every node reachable from
// the entries over required edges alone reached Succeeded or Skipped. A
// failure confined to a best-effort branch does not sink the run.
func (r *Result) IsSuccess() bool {
	if r.Err != nil {
		return false
	}
	for id, nr := range r.Results {
		if r.required != nil {
			if _, ok := r.required[id]; !ok {
				continue
			}
		}
		if nr.Status != StatusSucceeded && nr.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// Output returns the recorded output of a succeeded node.
func (r *Result) Output(nodeID string) (any, bool) {
	nr, ok := r.Results[nodeID]
	if !ok || nr.Status != StatusSucceeded {
		return nil, false
	}
	return nr.Output, true
}

// FirstError returns one recorded node error, or nil. Prefer inspecting
// Results for precise reporting.
func (r *Result) FirstError() error {
	for _, nr := range r.Results {
		if nr.Err != nil {
			return nr.Err
		}
	}
	return nil
}

// requiredSet walks the workflow from its entry nodes over required edges
// and returns every node reached.
func requiredSet(wf *graph.Workflow) map[string]struct{} {
	set := make(map[string]struct{}, wf.Len())
	queue := wf.EntryNodes()
	for _, id := range queue {
		set[id] = struct{}{}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range wf.Outgoing(id) {
			if e.BestEffort {
				continue
			}
			if _, ok := set[e.Target]; ok {
				continue
			}
			set[e.Target] = struct{}{}
			queue = append(queue, e.Target)
		}
	}
	return set
}

// AgentRunner executes agent node payloads. The executor depends only on
// this interface; the concrete runtime lives in the agent package.
type AgentRunner interface {
	Execute(execCtx *core.ExecContext, spec *graph.AgentSpec, in graph.Inputs) (any, error)
}

// Options configures an Executor.
type Options struct {
	// Workers bounds concurrent node execution. Defaults to 4.
	Workers int
	// Agents runs agent nodes. Required only for workflows containing
	// agent nodes.
	Agents AgentRunner
	// Logger receives scheduler and worker diagnostics.
	Logger logging.Logger
	// Sink receives lifecycle events.
	Sink core.Sink
}

// Option mutates Options.
type Option func(*Options)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithAgentRunner sets the runtime for agent nodes.
func WithAgentRunner(r AgentRunner) Option {
	return func(o *Options) { o.Agents = r }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithSink sets the event sink.
func WithSink(s core.Sink) Option {
	return func(o *Options) { o.Sink = s }
}

// Executor schedules workflow runs. It is stateless across runs and safe
// for concurrent use.
type Executor struct {
	workers int
	agents  AgentRunner
	logger  logging.Logger
	sink    core.Sink
}

// New creates an executor.
func New(optFns ...Option) *Executor {
	opts := Options{Workers: 4}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Sink == nil {
		opts.Sink = core.NoOpSink{}
	}
	return &Executor{
		workers: opts.Workers,
		agents:  opts.Agents,
		logger:  opts.Logger,
		sink:    opts.Sink,
	}
}

type task struct {
	node *graph.Node
	in   graph.Inputs
}

type completion struct {
	nodeID     string
	output     any
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// Run executes the workflow to quiescence: every node ends in a terminal
// state. The returned Result is complete even on failure or cancellation;
// the error return is reserved for pre-flight problems (nil workflow, agent
// node without an agent runtime).
func (e *Executor) Run(ctx context.Context, wf *graph.Workflow, input any) (*Result, error) {
	if wf == nil {
		return nil, errors.New("executor: nil workflow")
	}
	for _, id := range wf.NodeIDs() {
		n, _ := wf.Node(id)
		if n.Kind == graph.KindAgent && e.agents == nil {
			return nil, fmt.Errorf("executor: workflow contains agent node %q but no agent runtime is configured", id)
		}
	}

	run := &runState{
		exec:    e,
		wf:      wf,
		runID:   uuid.NewString(),
		ctx:     ctx,
		input:   input,
		results: make(map[string]NodeResult, wf.Len()),
		tasks:   make(chan task, wf.Len()),
		done:    make(chan completion, wf.Len()),
	}
	return run.run(), nil
}

// runState is one run's working set. Only the scheduler goroutine touches
// the results map; workers communicate through channels.
type runState struct {
	exec  *Executor
	wf    *graph.Workflow
	runID string
	ctx   context.Context
	input any

	results map[string]NodeResult

	tasks chan task
	done  chan completion

	cancelled bool
}

func (s *runState) run() *Result {
	ev := core.NewEvent(core.EventRunStarted)
	ev.RunID = s.runID
	s.exec.sink.Emit(ev)
	s.exec.logger.Info("run started", "run_id", s.runID, "nodes", s.wf.Len(), "workers", s.exec.workers)

	workers := s.exec.workers
	if workers > s.wf.Len() {
		workers = s.wf.Len()
	}
	for i := 0; i < workers; i++ {
		go s.worker()
	}

	for _, id := range s.wf.NodeIDs() {
		s.results[id] = NodeResult{NodeID: id, Status: StatusPending}
	}

	for _, layer := range s.wf.TopologicalLayers() {
		s.runLayer(layer)
	}
	close(s.tasks)

	var runErr error
	if s.cancelled {
		runErr = s.ctx.Err()
	}
	res := &Result{RunID: s.runID, Results: s.results, Err: runErr, required: requiredSet(s.wf)}

	fin := core.NewEvent(core.EventRunFinished)
	fin.RunID = s.runID
	fin.Status = runStatus(res)
	s.exec.sink.Emit(fin)
	s.exec.logger.Info("run finished", "run_id", s.runID, "status", fin.Status)
	return res
}

// runLayer dispatches every runnable node of one layer and blocks until the
// layer is fully terminal. The barrier between layers is what guarantees
// that no node ever observes a half-finished predecessor layer.
func (s *runState) runLayer(layer []string) {
	inFlight := 0
	for _, id := range layer {
		if s.cancelled || s.ctx.Err() != nil {
			s.cancelled = true
			s.settle(id, StatusCancelled, nil, core.ErrCancelled)
			continue
		}
		in, fate, err := s.resolve(id)
		if fate != StatusRunning {
			s.settle(id, fate, nil, err)
			continue
		}

		node, _ := s.wf.Node(id)
		nr := s.results[id]
		nr.Status = StatusRunning
		s.results[id] = nr
		inFlight++
		s.tasks <- task{node: node, in: in}
	}

	for inFlight > 0 {
		if s.cancelled {
			// The context is expired; only drain what is already running.
			c := <-s.done
			inFlight--
			s.record(c)
			continue
		}
		select {
		case c := <-s.done:
			inFlight--
			s.record(c)
		case <-s.ctx.Done():
			s.cancelled = true
			s.exec.logger.Warn("run cancelled, draining in-flight nodes",
				"run_id", s.runID, "in_flight", inFlight)
		}
	}
}

// resolve inspects a node's incoming edges against its predecessors'
// recorded outcomes and decides its fate: run with the aggregated inputs,
// skip, fail with an upstream short-circuit, or cancel.
func (s *runState) resolve(id string) (graph.Inputs, Status, error) {
	edges := s.wf.Incoming(id)
	if len(edges) == 0 {
		return graph.Inputs{graph.InputKey: s.input}, StatusRunning, nil
	}

	in := make(graph.Inputs, len(edges))
	skip := false
	var doom error
	var cancelled bool
	for _, e := range edges {
		src := s.results[e.Source]
		switch src.Status {
		case StatusSucceeded:
			if e.Condition != nil && !e.Condition(src.Output) {
				if e.BestEffort {
					in[e.Source] = nil
				} else {
					skip = true
				}
			} else {
				in[e.Source] = src.Output
			}
		case StatusSkipped:
			if e.BestEffort {
				in[e.Source] = nil
			} else {
				skip = true
			}
		case StatusCancelled:
			cancelled = true
		default: // StatusFailed
			if e.BestEffort {
				in[e.Source] = nil
			} else if doom == nil {
				doom = &core.UpstreamFailure{NodeID: e.Source, Cause: src.Err}
			}
		}
	}

	switch {
	case cancelled:
		return nil, StatusCancelled, core.ErrCancelled
	case doom != nil:
		return nil, StatusFailed, doom
	case skip:
		return nil, StatusSkipped, nil
	}
	return in, StatusRunning, nil
}

// settle records a terminal state reached without dispatching.
func (s *runState) settle(id string, st Status, output any, err error) {
	nr := s.results[id]
	nr.Status = st
	nr.Output = output
	nr.Err = err
	s.results[id] = nr
	s.emitNodeFinished(nr)
}

// record ingests a worker completion.
func (s *runState) record(c completion) {
	nr := s.results[c.nodeID]
	nr.StartedAt = c.startedAt
	nr.FinishedAt = c.finishedAt
	switch {
	case c.err == nil:
		nr.Status = StatusSucceeded
		nr.Output = c.output
	case errors.Is(c.err, context.Canceled) || errors.Is(c.err, core.ErrCancelled):
		nr.Status = StatusCancelled
		nr.Err = c.err
	default:
		nr.Status = StatusFailed
		nr.Err = c.err
	}
	s.results[c.nodeID] = nr
	s.emitNodeFinished(nr)
}

func (s *runState) emitNodeFinished(nr NodeResult) {
	ev := core.NewEvent(core.EventNodeFinished)
	ev.RunID = s.runID
	ev.NodeID = nr.NodeID
	ev.Status = string(nr.Status)
	ev.Elapsed = nr.Elapsed()
	if nr.Err != nil {
		ev.Error = nr.Err.Error()
	}
	s.exec.sink.Emit(ev)
	if nr.Err != nil {
		s.exec.logger.Warn("node finished", "run_id", s.runID, "node_id", nr.NodeID,
			"status", string(nr.Status), "error", nr.Err.Error())
	} else {
		s.exec.logger.Debug("node finished", "run_id", s.runID, "node_id", nr.NodeID,
			"status", string(nr.Status))
	}
}

func runStatus(r *Result) string {
	if r.Err != nil {
		return string(StatusCancelled)
	}
	if r.IsSuccess() {
		return string(StatusSucceeded)
	}
	return string(StatusFailed)
}

// worker pulls tasks until the channel closes. Each task gets a fresh
// ExecContext carrying its own reentrancy token.
func (s *runState) worker() {
	for t := range s.tasks {
		ev := core.NewEvent(core.EventNodeStarted)
		ev.RunID = s.runID
		ev.NodeID = t.node.ID
		s.exec.sink.Emit(ev)
		s.exec.logger.Debug("node started", "run_id", s.runID, "node_id", t.node.ID,
			"kind", string(t.node.Kind))

		execCtx := core.NewExecContext(s.ctx, s.runID, t.node.ID, s.exec.logger)
		started := time.Now()
		out, err := s.execute(execCtx, t.node, t.in)
		s.done <- completion{
			nodeID:     t.node.ID,
			output:     out,
			err:        err,
			startedAt:  started,
			finishedAt: time.Now(),
		}
	}
}

func (s *runState) execute(execCtx *core.ExecContext, n *graph.Node, in graph.Inputs) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %q panicked: %v", n.ID, r)
		}
	}()
	switch n.Kind {
	case graph.KindAgent:
		return s.exec.agents.Execute(execCtx, n.Agent, in)
	default:
		return n.Transform(execCtx, in)
	}
}
