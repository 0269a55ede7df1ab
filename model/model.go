package model

import (
	"context"
	"fmt"
	"sync"
)

// ToolCall is a function call request surfaced by a model provider. Unified
// across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded argument payload
}

// ToolDefinition declaratively exposes a callable capability to the model.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of agent conversation history.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant" or "tool"
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages requesting calls
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages answering a call
	Name       string     `json:"name,omitempty"`         // tool name for tool messages
}

// Request captures the normalized model input assembled by the agent runtime.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token accounting for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the model's answer to a Request: either final content or a set
// of tool call requests (mutually exclusive in well-behaved providers, though
// some return both).
type Response struct {
	Content      string      `json:"content,omitempty"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// IsFinal reports whether the response carries a terminal answer rather than
// tool call requests.
func (r *Response) IsFinal() bool { return len(r.ToolCalls) == 0 }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Dependency returns the logical dependency key used by the reliability
// layer to share one circuit breaker across all callers of a provider.
func (i Info) Dependency() string { return "model:" + i.Provider }

// Model is the minimal interface the agent runtime needs to drive
// generation. Complete blocks until the provider answers or fails; errors
// should be *core.ClientError values so the reliability layer can classify
// them.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Info() Info
}

// ScriptedModel is an in-memory Model that replays a fixed sequence of
// responses (or errors), recording every request it receives. Useful for
// tests and examples; no network involved.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	script   []ScriptStep
	cursor   int
	requests []Request
}

// ScriptStep is one scripted turn: a response or an error.
type ScriptStep struct {
	Response *Response
	Err      error
}

// NewScriptedModel constructs a ScriptedModel named name that will answer
// with the given steps in order.
func NewScriptedModel(name string, steps ...ScriptStep) *ScriptedModel {
	return &ScriptedModel{
		info:   Info{Name: name, Provider: "scripted", SupportsTools: true},
		script: steps,
	}
}

// Reply appends a plain final-answer step.
func (m *ScriptedModel) Reply(content string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, ScriptStep{Response: &Response{Content: content, FinishReason: "stop"}})
	return m
}

// CallTool appends a step requesting a single tool call.
func (m *ScriptedModel) CallTool(id, name, arguments string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, ScriptStep{Response: &Response{
		ToolCalls:    []ToolCall{{ID: id, Name: name, Arguments: arguments}},
		FinishReason: "tool_calls",
	}})
	return m
}

// Fail appends a step that returns err.
func (m *ScriptedModel) Fail(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, ScriptStep{Err: err})
	return m
}

// Complete implements Model by replaying the next scripted step. Running past
// the end of the script is an error so tests fail loudly on unexpected calls.
func (m *ScriptedModel) Complete(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.cursor >= len(m.script) {
		return nil, fmt.Errorf("scripted model %q exhausted after %d calls", m.info.Name, len(m.script))
	}
	step := m.script[m.cursor]
	m.cursor++
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// Requests returns a copy of all requests seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Complete was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
