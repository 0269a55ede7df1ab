package client

import (
	"context"
	"sync"

	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/logging"
)

// Op is one native operation: a potentially slow external call bounded by
// the supplied context. Ops must honor context cancellation.
type Op func(ctx context.Context) (any, error)

// Options configure a Runtime.
type Options struct {
	Retry   RetryPolicy
	Breaker BreakerConfig
	Logger  logging.Logger
	Sink    core.Sink
}

// Runtime is the native client boundary shared by all workers of an
// executor. It owns one circuit breaker per logical dependency and applies
// the composition mandated for every external call:
//
//	breaker check -> retry-wrapped operation -> breaker outcome update
//
// Invoke blocks from the caller's point of view but holds no engine-wide
// lock, so concurrently dispatched nodes on other workers keep making
// progress while a call is in flight.
type Runtime struct {
	retry      RetryPolicy
	breakerCfg BreakerConfig
	logger     logging.Logger
	sink       core.Sink

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRuntime creates a boundary runtime with per-dependency breakers created
// lazily on first use.
func NewRuntime(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Retry:   DefaultRetryPolicy(),
		Breaker: DefaultBreakerConfig(),
		Logger:  logging.NoOpLogger{},
		Sink:    core.NoOpSink{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Sink == nil {
		opts.Sink = core.NoOpSink{}
	}
	return &Runtime{
		retry:      opts.Retry,
		breakerCfg: opts.Breaker,
		logger:     opts.Logger,
		sink:       opts.Sink,
		breakers:   map[string]*CircuitBreaker{},
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) func(o *Options) {
	return func(o *Options) { o.Retry = p }
}

// WithBreakerConfig overrides the circuit breaker configuration applied to
// newly created breakers.
func WithBreakerConfig(cfg BreakerConfig) func(o *Options) {
	return func(o *Options) { o.Breaker = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithSink sets the observability sink.
func WithSink(s core.Sink) func(o *Options) {
	return func(o *Options) { o.Sink = s }
}

// Invoke executes op against the named dependency under the reliability
// layer. The execution context's reentrancy token is claimed for the full
// dynamic extent of the call: a second Invoke on the same context before
// this one returns fails immediately with core.ErrNestedExecution.
func (r *Runtime) Invoke(execCtx *core.ExecContext, dependency string, op Op) (any, error) {
	if err := execCtx.EnterNative(dependency); err != nil {
		execCtx.LogError("client.nested_invocation",
			"dependency", dependency,
			"node_id", execCtx.NodeID,
		)
		return nil, err
	}
	defer execCtx.ExitNative()

	breaker := r.Breaker(dependency)
	if err := breaker.Allow(); err != nil {
		return nil, err
	}

	out, err := r.retry.do(execCtx.Context, dependency, r.logger, op)
	breaker.Record(err == nil)
	return out, err
}

// Breaker returns the shared circuit breaker for a dependency, creating it
// if needed.
func (r *Runtime) Breaker(dependency string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[dependency]
	if !ok {
		b = NewCircuitBreaker(dependency, r.breakerCfg, r.logger, r.sink)
		r.breakers[dependency] = b
	}
	return b
}
