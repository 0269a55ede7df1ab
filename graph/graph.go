package graph

import (
	"sort"

	"github.com/InfinitiBit/graphbit/core"
	"github.com/InfinitiBit/graphbit/model"
	"github.com/InfinitiBit/graphbit/tool"
)

// Kind distinguishes node payloads.
type Kind string

const (
	// KindAgent delegates the node's computation to a language model with
	// an optional bound tool set.
	KindAgent Kind = "agent"
	// KindTransform runs a plain Go function over aggregated predecessor
	// outputs.
	KindTransform Kind = "transform"
)

// Inputs aggregates predecessor outputs keyed by predecessor node id. For
// entry nodes it carries the workflow input under InputKey. A best-effort
// predecessor that did not succeed contributes a nil value.
type Inputs map[string]any

// InputKey is the reserved Inputs key carrying the workflow-level input
// value handed to entry nodes.
const InputKey = "workflow:input"

// TransformFunc is a transform node's computation. It receives the node's
// fresh execution context (required for any native client invocation) and
// the aggregated predecessor outputs, and returns the node's output.
type TransformFunc func(execCtx *core.ExecContext, in Inputs) (any, error)

// AgentSpec is the payload of an agent node: the system instructions, a
// prompt template rendered over the aggregated inputs, the backing model and
// the bound tool set.
type AgentSpec struct {
	// Model drives the node's reasoning loop.
	Model model.Model
	// Instructions is the system prompt.
	Instructions string
	// Prompt is a text/template over the Inputs map (predecessor node ids
	// as keys, plus InputKey for entry nodes).
	Prompt string
	// Tools is the node's bound capability set.
	Tools []tool.Tool
	// MaxIterations bounds the model/tool loop. Zero means the runtime
	// default.
	MaxIterations int
}

// Node is one unit of computation. Nodes are immutable after Build; only
// their execution results change, and those live in the executor's result
// table, never on the node.
type Node struct {
	ID        string
	Name      string
	Kind      Kind
	Agent     *AgentSpec    // set iff Kind == KindAgent
	Transform TransformFunc // set iff Kind == KindTransform
}

// Condition decides from the source node's output whether an edge activates
// its target. A nil Condition always activates.
type Condition func(output any) bool

// Edge is a directed dependency. Required edges (the default) propagate
// upstream failure to the target; best-effort edges let the target proceed
// with a nil input in place of the missing output.
type Edge struct {
	Source     string
	Target     string
	Condition  Condition
	BestEffort bool
}

// EdgeOption customizes an edge added through Builder.AddEdge.
type EdgeOption func(e *Edge)

// WithCondition attaches an activation condition evaluated against the
// source node's output.
func WithCondition(cond Condition) EdgeOption {
	return func(e *Edge) { e.Condition = cond }
}

// BestEffort marks the edge non-required: the target proceeds even when the
// source fails, seeing a nil input for it.
func BestEffort() EdgeOption {
	return func(e *Edge) { e.BestEffort = true }
}

// Builder accumulates nodes and edges and seals them into a validated
// Workflow. A Builder is not safe for concurrent use; Build may be called
// once.
type Builder struct {
	nodes []Node
	edges []Edge
}

// NewBuilder creates an empty workflow builder.
func NewBuilder() *Builder { return &Builder{} }

// AddNode appends a node.
func (b *Builder) AddNode(n Node) *Builder {
	b.nodes = append(b.nodes, n)
	return b
}

// AddTransform appends a transform node.
func (b *Builder) AddTransform(id, name string, fn TransformFunc) *Builder {
	return b.AddNode(Node{ID: id, Name: name, Kind: KindTransform, Transform: fn})
}

// AddAgent appends an agent node.
func (b *Builder) AddAgent(id, name string, spec *AgentSpec) *Builder {
	return b.AddNode(Node{ID: id, Name: name, Kind: KindAgent, Agent: spec})
}

// AddEdge appends a directed dependency from source to target.
func (b *Builder) AddEdge(source, target string, optFns ...EdgeOption) *Builder {
	e := Edge{Source: source, Target: target}
	for _, fn := range optFns {
		fn(&e)
	}
	b.edges = append(b.edges, e)
	return b
}

// Build validates the accumulated nodes and edges and seals them into an
// immutable Workflow. It fails with a *core.ValidationError on duplicate
// node ids, edges referencing unknown nodes, payload/kind mismatches, or
// cycles.
func (b *Builder) Build() (*Workflow, error) {
	if len(b.nodes) == 0 {
		return nil, core.NewValidationError(core.ValidationEmptyGraph, "workflow has no nodes")
	}

	nodes := make(map[string]*Node, len(b.nodes))
	order := make([]string, 0, len(b.nodes))
	for i := range b.nodes {
		n := b.nodes[i]
		if _, dup := nodes[n.ID]; dup {
			return nil, core.NewValidationError(core.ValidationDuplicateNode, "node id %q declared twice", n.ID)
		}
		switch n.Kind {
		case KindTransform:
			if n.Transform == nil || n.Agent != nil {
				return nil, core.NewValidationError(core.ValidationBadNode, "transform node %q needs exactly a transform payload", n.ID)
			}
		case KindAgent:
			if n.Agent == nil || n.Transform != nil {
				return nil, core.NewValidationError(core.ValidationBadNode, "agent node %q needs exactly an agent payload", n.ID)
			}
			if n.Agent.Model == nil {
				return nil, core.NewValidationError(core.ValidationBadNode, "agent node %q has no model", n.ID)
			}
		default:
			return nil, core.NewValidationError(core.ValidationBadNode, "node %q has unknown kind %q", n.ID, n.Kind)
		}
		nodes[n.ID] = &b.nodes[i]
		order = append(order, n.ID)
	}

	incoming := make(map[string][]Edge, len(nodes))
	outgoing := make(map[string][]Edge, len(nodes))
	for _, e := range b.edges {
		if _, ok := nodes[e.Source]; !ok {
			return nil, core.NewValidationError(core.ValidationDanglingEdge, "edge source %q is not a declared node", e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return nil, core.NewValidationError(core.ValidationDanglingEdge, "edge target %q is not a declared node", e.Target)
		}
		incoming[e.Target] = append(incoming[e.Target], e)
		outgoing[e.Source] = append(outgoing[e.Source], e)
	}

	layers, err := layer(order, incoming, outgoing)
	if err != nil {
		return nil, err
	}

	return &Workflow{
		nodes:    nodes,
		order:    order,
		incoming: incoming,
		outgoing: outgoing,
		layers:   layers,
	}, nil
}

// layer runs Kahn's algorithm, producing the topological layering and
// detecting cycles. Node ids within each layer are sorted for deterministic
// traversal.
func layer(order []string, incoming map[string][]Edge, outgoing map[string][]Edge) ([][]string, error) {
	indegree := make(map[string]int, len(order))
	for _, id := range order {
		indegree[id] = len(incoming[id])
	}

	var layers [][]string
	var current []string
	for _, id := range order {
		if indegree[id] == 0 {
			current = append(current, id)
		}
	}

	seen := 0
	for len(current) > 0 {
		sort.Strings(current)
		layers = append(layers, current)
		seen += len(current)

		var next []string
		for _, id := range current {
			for _, e := range outgoing[id] {
				indegree[e.Target]--
				if indegree[e.Target] == 0 {
					next = append(next, e.Target)
				}
			}
		}
		current = next
	}

	if seen != len(order) {
		var stuck []string
		for _, id := range order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, core.NewValidationError(core.ValidationCycle, "no topological order exists; nodes on a cycle: %v", stuck)
	}
	return layers, nil
}

// Workflow is the sealed, immutable graph. All accessors are safe for
// concurrent use.
type Workflow struct {
	nodes    map[string]*Node
	order    []string // declaration order
	incoming map[string][]Edge
	outgoing map[string][]Edge
	layers   [][]string
}

// Len returns the node count.
func (w *Workflow) Len() int { return len(w.nodes) }

// Node returns the node with the given id.
func (w *Workflow) Node(id string) (*Node, bool) {
	n, ok := w.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in declaration order.
func (w *Workflow) NodeIDs() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Incoming returns the edges targeting id.
func (w *Workflow) Incoming(id string) []Edge { return w.incoming[id] }

// Outgoing returns the edges leaving id.
func (w *Workflow) Outgoing(id string) []Edge { return w.outgoing[id] }

// EntryNodes returns the ids of nodes with no incoming edges, sorted.
func (w *Workflow) EntryNodes() []string {
	var out []string
	for _, id := range w.order {
		if len(w.incoming[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// TopologicalLayers returns the layering computed at build time: each layer
// is a sorted set of node ids sharing no dependency edges among themselves,
// so its members are independently parallelizable.
func (w *Workflow) TopologicalLayers() [][]string {
	out := make([][]string, len(w.layers))
	for i, l := range w.layers {
		cp := make([]string, len(l))
		copy(cp, l)
		out[i] = cp
	}
	return out
}
