// Package agent implements the model/tool reasoning loop behind agent
// nodes. Each Execute call renders the node's prompt over its aggregated
// inputs, then alternates model completions and tool dispatches until the
// model produces a final answer or the iteration cap is hit.
package agent
