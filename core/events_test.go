package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventNodeStarted)
	assert.Equal(t, EventNodeStarted, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	other := NewEvent(EventNodeStarted)
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestCollectorSink(t *testing.T) {
	sink := NewCollectorSink()
	sink.Emit(NewEvent(EventRunStarted))
	sink.Emit(NewEvent(EventNodeStarted))
	sink.Emit(NewEvent(EventNodeFinished))
	sink.Emit(NewEvent(EventNodeStarted))

	assert.Len(t, sink.Events(), 4)
	assert.Len(t, sink.ByType(EventNodeStarted), 2)
	assert.Len(t, sink.ByType(EventBreakerOpened), 0)
}

func TestValidationErrorFormatting(t *testing.T) {
	err := NewValidationError(ValidationCycle, "nodes on a cycle: %v", []string{"a", "b"})
	assert.Contains(t, err.Error(), "cycle_detected")
	assert.Contains(t, err.Error(), "a")
}

func TestClientErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection reset")
	transient := NewTransientError("model:openai", cause)
	permanent := NewPermanentError("model:openai", errors.New("bad key"))

	assert.True(t, IsTransient(transient))
	assert.False(t, IsTransient(permanent))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.ErrorIs(t, transient, cause)

	var ce *ClientError
	require.True(t, errors.As(transient, &ce))
	assert.Equal(t, "model:openai", ce.Dependency)
}

func TestUpstreamFailureUnwrap(t *testing.T) {
	cause := errors.New("boom")
	uf := &UpstreamFailure{NodeID: "load:a", Cause: cause}
	assert.ErrorIs(t, uf, cause)
	assert.Contains(t, uf.Error(), "load:a")
}
