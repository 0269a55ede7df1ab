package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/InfinitiBit/graphbit/logging"
)

// EventType identifies the kind of engine event emitted to the sink.
type EventType string

const (
	// EventRunStarted fires when a workflow run begins.
	EventRunStarted EventType = "run_started"
	// EventRunFinished fires when a workflow run reaches quiescence.
	EventRunFinished EventType = "run_finished"
	// EventNodeStarted fires when a node is dispatched to a worker.
	EventNodeStarted EventType = "node_started"
	// EventNodeFinished fires when a node's execution result is recorded.
	EventNodeFinished EventType = "node_finished"
	// EventBreakerOpened fires when a circuit breaker trips open.
	EventBreakerOpened EventType = "breaker_opened"
	// EventBreakerClosed fires when a circuit breaker recovers to closed.
	EventBreakerClosed EventType = "breaker_closed"
	// EventToolInvoked fires after a tool handler runs (success or failure).
	EventToolInvoked EventType = "tool_invoked"
)

// Event is the structured record the engine writes to the observability
// sink. The engine only ever writes events; it never reads them back. Fields
// not meaningful for a given type are left zero.
type Event struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	RunID      string        `json:"run_id,omitempty"`
	NodeID     string        `json:"node_id,omitempty"`
	Dependency string        `json:"dependency,omitempty"`
	Tool       string        `json:"tool,omitempty"`
	Status     string        `json:"status,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// NewEvent creates an event of the given type with a fresh id and UTC
// timestamp.
func NewEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, Timestamp: time.Now().UTC()}
}

// Sink receives engine events. Implementations must be safe for concurrent
// use; Emit is called from worker goroutines and must not block for long.
type Sink interface {
	Emit(ev Event)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit implements Sink.
func (NoOpSink) Emit(Event) {}

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(ev Event) {
	s.logger.Info("engine.event",
		"type", string(ev.Type),
		"run_id", ev.RunID,
		"node_id", ev.NodeID,
		"dependency", ev.Dependency,
		"tool", ev.Tool,
		"status", ev.Status,
		"error", ev.Error,
		"elapsed_ms", ev.Elapsed.Milliseconds(),
	)
}

// CollectorSink buffers events in memory. Intended for tests and examples.
type CollectorSink struct {
	mu     sync.Mutex
	events []Event
}

// NewCollectorSink creates an empty collector.
func NewCollectorSink() *CollectorSink { return &CollectorSink{} }

// Emit implements Sink.
func (s *CollectorSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a snapshot of collected events in emission order.
func (s *CollectorSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns collected events matching the given type.
func (s *CollectorSink) ByType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
