package llm

import (
	"context"
	"sync"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
)

// scriptedStep is a single pre-programmed reply.
type scriptedStep struct {
	resp *ChatResponse
	err  error
}

// ScriptedProvider replays a fixed sequence of responses, one per Chat call.
// It is used in tests to drive multi-round tool-calling loops without a live
// backend. Once the script is exhausted, further calls return an error.
type ScriptedProvider struct {
	mu    sync.Mutex
	steps []scriptedStep
	calls []ChatRequest
}

// NewScriptedProvider creates an empty scripted provider.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{}
}

// AddResponse appends a plain text reply to the script.
func (p *ScriptedProvider) AddResponse(content string) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, scriptedStep{resp: &ChatResponse{Content: content}})
	return p
}

// AddToolCallResponse appends a reply that requests the given tool calls.
func (p *ScriptedProvider) AddToolCallResponse(calls ...ToolCall) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, scriptedStep{resp: &ChatResponse{ToolCalls: calls}})
	return p
}

// AddErrorResponse appends a failing step to the script.
func (p *ScriptedProvider) AddErrorResponse(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, scriptedStep{err: err})
	return p
}

// Chat implements Provider by consuming the next scripted step.
func (p *ScriptedProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := len(p.calls)
	p.calls = append(p.calls, req)

	if idx >= len(p.steps) {
		return nil, werrors.New(werrors.CodeLLMError, "scripted provider exhausted", nil).
			WithContext("calls", idx+1).
			WithContext("scripted", len(p.steps))
	}
	step := p.steps[idx]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// CallCount returns the number of Chat invocations so far.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Calls returns a copy of all recorded requests.
func (p *ScriptedProvider) Calls() []ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChatRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// ToolCallOf is a convenience constructor for a function tool call.
func ToolCallOf(id, name, arguments string) ToolCall {
	return ToolCall{
		ID:   id,
		Type: ToolTypeFunction,
		Function: FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}
