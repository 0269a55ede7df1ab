package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/logging"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int32

const (
	// StateClosed means calls flow normally.
	StateClosed BreakerState = iota
	// StateOpen means calls are rejected without touching the dependency.
	StateOpen
	// StateHalfOpen means exactly one trial call is admitted to probe
	// recovery.
	StateHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that trips the
	// breaker open.
	Threshold int
	// Cooldown is how long the breaker stays open before admitting a
	// half-open trial call.
	Cooldown time.Duration
	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// DefaultBreakerConfig returns the configuration used when none is supplied.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
}

// CircuitBreaker is the shared fault-containment state machine for one
// logical dependency. All callers of that dependency observe the same
// instance so a failing provider is fenced off for everyone at once.
//
// Every state change happens as a single transition under the mutex; there
// is no read-then-write window across lock boundaries.
type CircuitBreaker struct {
	dependency string
	cfg        BreakerConfig
	logger     logging.Logger
	sink       core.Sink

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
}

// NewCircuitBreaker creates a closed breaker for the named dependency.
func NewCircuitBreaker(dependency string, cfg BreakerConfig, logger logging.Logger, sink core.Sink) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBreakerConfig().Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if sink == nil {
		sink = core.NoOpSink{}
	}
	return &CircuitBreaker{dependency: dependency, cfg: cfg, logger: logger, sink: sink}
}

// Allow decides in one atomic transition whether a call may proceed. Open
// breakers reject with core.ErrCircuitOpen until the cooldown elapses, at
// which point exactly one caller is admitted as the half-open trial; other
// callers keep being rejected until that trial's outcome is recorded.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.cfg.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return fmt.Errorf("dependency %q: %w", b.dependency, core.ErrCircuitOpen)
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		b.logger.Info("breaker.half_open", "dependency", b.dependency)
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return fmt.Errorf("dependency %q: %w", b.dependency, core.ErrCircuitOpen)
		}
		b.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// Record folds the final outcome of an admitted call into the state machine
// as a single transition. Success closes the breaker and zeroes the failure
// counter; failure either reopens a half-open breaker or advances the
// consecutive-failure count toward the threshold.
func (b *CircuitBreaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		wasOpen := b.state != StateClosed
		b.state = StateClosed
		b.consecutiveFailures = 0
		b.trialInFlight = false
		if wasOpen {
			b.logger.Info("breaker.closed", "dependency", b.dependency)
			ev := core.NewEvent(core.EventBreakerClosed)
			ev.Dependency = b.dependency
			b.sink.Emit(ev)
		}
		return
	}

	switch b.state {
	case StateHalfOpen:
		// Failed trial: reopen and restart the cooldown.
		b.trip()
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.Threshold {
			b.trip()
		}
	case StateOpen:
		// Late outcome from a call admitted before the trip; nothing to do.
	}
}

// trip transitions to Open. Callers hold the mutex.
func (b *CircuitBreaker) trip() {
	b.state = StateOpen
	b.openedAt = b.cfg.now()
	b.trialInFlight = false
	b.logger.Warn("breaker.opened",
		"dependency", b.dependency,
		"consecutive_failures", b.consecutiveFailures,
		"cooldown", b.cfg.Cooldown.String(),
	)
	ev := core.NewEvent(core.EventBreakerOpened)
	ev.Dependency = b.dependency
	ev.Status = fmt.Sprintf("failures=%d", b.consecutiveFailures)
	b.sink.Emit(ev)
}

// State returns the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current consecutive failure count.
func (b *CircuitBreaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

// Reset forces the breaker back to closed. Intended for operational
// intervention and tests.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.trialInFlight = false
}
