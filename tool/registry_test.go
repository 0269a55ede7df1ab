package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinitiBit/graphbit/core"
)

func testToolCtx() *Context {
	return NewContext(core.NewExecContext(context.Background(), "run-1", "node-1", nil), "call-1")
}

func echoTool() Tool {
	return NewFunctionTool(
		"echo",
		"returns its message argument",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			return args["message"], nil
		},
	)
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(echoTool())

	got, ok := r.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name())
	assert.Equal(t, 1, r.Len())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(echoTool())
	replacement := NewFunctionTool("echo", "replacement", map[string]any{"type": "object"},
		func(_ *Context, _ map[string]any) (any, error) { return "new", nil })
	r.Register(replacement)

	require.Equal(t, 1, r.Len())
	got, _ := r.Lookup("echo")
	assert.Equal(t, "replacement", got.Description())
}

func TestDefinitions(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(echoTool())

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "returns its message argument", defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
}

func TestDispatch(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(echoTool())

	out, err := r.Dispatch(testToolCtx(), "echo", `{"message":"hello"}`)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := NewRegistry(nil, nil)

	_, err := r.Dispatch(testToolCtx(), "ghost", `{}`)
	require.Error(t, err)
	var targ *core.ToolArgumentsError
	assert.True(t, errors.As(err, &targ))
}

func TestDispatchMalformedJSON(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(echoTool())

	_, err := r.Dispatch(testToolCtx(), "echo", `{not json`)
	require.Error(t, err)
	var targ *core.ToolArgumentsError
	assert.True(t, errors.As(err, &targ))
}

func TestDispatchSchemaViolationNeverReachesHandler(t *testing.T) {
	handlerRan := false
	r := NewRegistry(nil, nil)
	r.Register(NewFunctionTool(
		"strict",
		"requires a message",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
		func(_ *Context, _ map[string]any) (any, error) {
			handlerRan = true
			return nil, nil
		},
	))

	_, err := r.Dispatch(testToolCtx(), "strict", `{}`)
	require.Error(t, err)
	var targ *core.ToolArgumentsError
	require.True(t, errors.As(err, &targ))
	assert.Equal(t, "message", targ.Field)
	assert.False(t, handlerRan)
}

func TestDispatchHandlerError(t *testing.T) {
	boom := errors.New("handler exploded")
	r := NewRegistry(nil, nil)
	r.Register(NewFunctionTool("bad", "always fails",
		map[string]any{"type": "object"},
		func(_ *Context, _ map[string]any) (any, error) {
			return nil, boom
		}))

	_, err := r.Dispatch(testToolCtx(), "bad", `{}`)
	require.Error(t, err)
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "bad", terr.Tool)
	assert.ErrorIs(t, err, boom)
}

func TestDispatchEmitsEvent(t *testing.T) {
	sink := core.NewCollectorSink()
	r := NewRegistry(nil, sink)
	r.Register(echoTool())

	_, err := r.Dispatch(testToolCtx(), "echo", `{"message":"hi"}`)
	require.NoError(t, err)

	events := sink.ByType(core.EventToolInvoked)
	require.Len(t, events, 1)
	assert.Equal(t, "echo", events[0].Tool)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type args struct {
		City string `json:"city" description:"target city"`
	}
	ft := NewFunctionToolFromStruct("weather", "weather lookup", args{},
		func(_ *Context, in map[string]any) (any, error) {
			return in["city"], nil
		})

	params := ft.Parameters()
	props := params["properties"].(map[string]any)
	assert.Contains(t, props, "city")
	assert.Equal(t, []string{"city"}, params["required"])
}
