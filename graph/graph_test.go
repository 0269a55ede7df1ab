package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinitiBit/graphbit/core"
)

func passthrough(_ *core.ExecContext, in Inputs) (any, error) {
	return in, nil
}

func TestBuildValidWorkflow(t *testing.T) {
	wf, err := NewBuilder().
		AddTransform("a", "A", passthrough).
		AddTransform("b", "B", passthrough).
		AddTransform("c", "C", passthrough).
		AddEdge("a", "b").
		AddEdge("a", "c").
		Build()
	require.NoError(t, err)
	assert.Equal(t, 3, wf.Len())
	assert.Equal(t, []string{"a"}, wf.EntryNodes())
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}}, wf.TopologicalLayers())
}

func TestBuildRejectsEmptyGraph(t *testing.T) {
	_, err := NewBuilder().Build()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.ValidationEmptyGraph, verr.Kind)
}

func TestBuildRejectsDuplicateNodeID(t *testing.T) {
	_, err := NewBuilder().
		AddTransform("a", "first", passthrough).
		AddTransform("a", "second", passthrough).
		Build()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.ValidationDuplicateNode, verr.Kind)
}

func TestBuildRejectsDanglingEdge(t *testing.T) {
	_, err := NewBuilder().
		AddTransform("a", "A", passthrough).
		AddEdge("a", "ghost").
		Build()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.ValidationDanglingEdge, verr.Kind)
	assert.Contains(t, verr.Detail, "ghost")
}

func TestBuildRejectsCycle(t *testing.T) {
	_, err := NewBuilder().
		AddTransform("a", "A", passthrough).
		AddTransform("b", "B", passthrough).
		AddTransform("c", "C", passthrough).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", "a").
		Build()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.ValidationCycle, verr.Kind)
}

func TestBuildRejectsSelfLoop(t *testing.T) {
	_, err := NewBuilder().
		AddTransform("a", "A", passthrough).
		AddEdge("a", "a").
		Build()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.ValidationCycle, verr.Kind)
}

func TestBuildRejectsAgentWithoutModel(t *testing.T) {
	_, err := NewBuilder().
		AddAgent("a", "A", &AgentSpec{Prompt: "hi"}).
		Build()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.ValidationBadNode, verr.Kind)
}

func TestTopologicalLayersDiamond(t *testing.T) {
	wf, err := NewBuilder().
		AddTransform("src", "source", passthrough).
		AddTransform("left", "left", passthrough).
		AddTransform("right", "right", passthrough).
		AddTransform("sink", "sink", passthrough).
		AddEdge("src", "left").
		AddEdge("src", "right").
		AddEdge("left", "sink").
		AddEdge("right", "sink").
		Build()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"src"}, {"left", "right"}, {"sink"}}, wf.TopologicalLayers())
}

func TestTopologicalLayersDeterministic(t *testing.T) {
	build := func() *Workflow {
		wf, err := NewBuilder().
			AddTransform("z", "Z", passthrough).
			AddTransform("m", "M", passthrough).
			AddTransform("a", "A", passthrough).
			AddEdge("z", "a").
			AddEdge("m", "a").
			Build()
		require.NoError(t, err)
		return wf
	}
	first := build().TopologicalLayers()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build().TopologicalLayers())
	}
	assert.Equal(t, [][]string{{"m", "z"}, {"a"}}, first)
}

func TestEdgeOptions(t *testing.T) {
	wf, err := NewBuilder().
		AddTransform("a", "A", passthrough).
		AddTransform("b", "B", passthrough).
		AddEdge("a", "b", BestEffort(), WithCondition(func(out any) bool {
			return out == "go"
		})).
		Build()
	require.NoError(t, err)

	edges := wf.Incoming("b")
	require.Len(t, edges, 1)
	assert.True(t, edges[0].BestEffort)
	require.NotNil(t, edges[0].Condition)
	assert.True(t, edges[0].Condition("go"))
	assert.False(t, edges[0].Condition("stop"))
}

func TestWorkflowAccessors(t *testing.T) {
	wf, err := NewBuilder().
		AddTransform("a", "A", passthrough).
		AddTransform("b", "B", passthrough).
		AddEdge("a", "b").
		Build()
	require.NoError(t, err)

	n, ok := wf.Node("a")
	require.True(t, ok)
	assert.Equal(t, KindTransform, n.Kind)

	_, ok = wf.Node("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, wf.NodeIDs())
	assert.Len(t, wf.Outgoing("a"), 1)
	assert.Empty(t, wf.Incoming("a"))
}
