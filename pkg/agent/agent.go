// SPDX-License-Identifier: Apache-2.0

// Package agent implements the stage agents: each one turns the case's
// accumulated data, the latest human message, and a bounded tool-calling
// loop into a single structured decision.
package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/llm"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/mcp"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/telemetry"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

// defaultMaxRounds caps the tool-calling loop per stage run.
const defaultMaxRounds = 5

// loopExhaustedCompletion stands in for a final completion when the loop
// ceiling trips while the model is still requesting tools. It parses to the
// REVIEW fallback, so the case waits for a human instead of erroring.
const loopExhaustedCompletion = "Processing took longer than expected and was paused. A specialist will review the collected information."

// Gateway is the tool surface a stage agent works against.
type Gateway interface {
	CapabilitiesFor(ctx context.Context, required []string) ([]mcp.Capability, error)
	Invoke(ctx context.Context, qualifiedName string, args map[string]interface{}) mcp.Invocation
}

// StageAgent runs one workflow stage.
type StageAgent struct {
	def           StageDefinition
	provider      llm.Provider
	gateway       Gateway
	model         string
	maxRounds     int
	historyWindow int
	logger        *slog.Logger
}

// Option customizes a stage agent.
type Option func(*StageAgent)

// WithModel sets the model name passed to the completion provider.
func WithModel(model string) Option {
	return func(a *StageAgent) {
		a.model = model
	}
}

// WithMaxRounds overrides the tool-calling loop ceiling.
func WithMaxRounds(n int) Option {
	return func(a *StageAgent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithHistoryWindow overrides how many trailing conversation entries enter
// the prompt.
func WithHistoryWindow(n int) Option {
	return func(a *StageAgent) {
		if n > 0 {
			a.historyWindow = n
		}
	}
}

// WithLogger sets the agent's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *StageAgent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a stage agent from its definition.
func New(def StageDefinition, provider llm.Provider, gateway Gateway, opts ...Option) *StageAgent {
	a := &StageAgent{
		def:           def,
		provider:      provider,
		gateway:       gateway,
		maxRounds:     defaultMaxRounds,
		historyWindow: defaultHistoryWindow,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the stage identifier this agent serves.
func (a *StageAgent) Name() string {
	return a.def.Name
}

// Run executes the bounded tool-calling loop and produces exactly one
// StageResult. It never returns an error: reasoning failures become an
// ERROR decision, loop exhaustion becomes a placeholder completion, and
// tool failures are recorded observations the model can react to.
func (a *StageAgent) Run(ctx context.Context, c *workflow.Case) workflow.StageResult {
	ctx, span := otel.Tracer("onboard/agent").Start(ctx, "stage.run")
	defer span.End()

	capabilities := a.capabilities(ctx)
	tools := make([]llm.Tool, 0, len(capabilities))
	for _, entry := range capabilities {
		tools = append(tools, entry.Definition())
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: buildSystemPrompt(a.def)},
		{Role: llm.RoleUser, Content: buildContextBlock(c, a.historyWindow)},
	}

	var invocations []mcp.Invocation
	final := ""
	rounds := 0
	for round := 1; round <= a.maxRounds; round++ {
		rounds = round
		resp, err := a.chat(ctx, messages, tools)
		if err != nil {
			return a.errorResult(ctx, err, invocations, round)
		}

		if len(resp.ToolCalls) == 0 {
			final = resp.Content
			break
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			inv := a.invoke(ctx, call)
			invocations = append(invocations, inv)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    observation(inv),
			})
		}
	}

	if final == "" {
		a.logger.WarnContext(ctx, "stage.loop.exhausted",
			slog.String("stage", a.def.Name),
			slog.Int("rounds", a.maxRounds))
		final = loopExhaustedCompletion
	}

	decision := workflow.ParseDecision(a.def.Name, final)

	span.SetAttributes(telemetry.StageAttributes(a.def.Name, string(decision.Decision), string(workflow.OutcomeSuccess), rounds, a.maxRounds)...)
	if m, err := telemetry.GetMetrics(); err == nil {
		m.RecordStageRun(ctx, a.def.Name, string(decision.Decision))
	}
	a.logger.InfoContext(ctx, "stage.run.done",
		slog.String("case_id", c.ID),
		slog.String("stage", a.def.Name),
		slog.String("decision", string(decision.Decision)),
		slog.Int("rounds", rounds),
		slog.Int("tool_calls", len(invocations)))

	return workflow.StageResult{
		Stage:           a.def.Name,
		RawCompletion:   final,
		Decision:        decision,
		ToolInvocations: invocations,
		Outcome:         workflow.OutcomeSuccess,
		Timestamp:       time.Now().UTC(),
	}
}

// capabilities resolves the stage's tool set. Resolution failure degrades to
// an empty set: the stage still runs, it just cannot call tools this turn.
func (a *StageAgent) capabilities(ctx context.Context) []mcp.Capability {
	caps, err := a.gateway.CapabilitiesFor(ctx, a.def.RequiredCapabilities)
	if err != nil {
		a.logger.WarnContext(ctx, "stage.capabilities.unavailable",
			slog.String("stage", a.def.Name),
			slog.String("error", err.Error()))
		return nil
	}
	return caps
}

func (a *StageAgent) chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Model:    a.model,
		Messages: messages,
		Tools:    tools,
	})
	if m, merr := telemetry.GetMetrics(); merr == nil {
		m.RecordLLMCall(ctx, a.model, time.Since(start).Milliseconds())
	}
	return resp, err
}

// invoke decodes one requested tool call and routes it through the gateway.
// A malformed argument payload becomes a failed invocation, not a fault.
func (a *StageAgent) invoke(ctx context.Context, call llm.ToolCall) mcp.Invocation {
	args, err := mcp.DecodeToolArgs(call.Function.Arguments)
	if err != nil {
		return mcp.Invocation{
			ID:        call.ID,
			Tool:      call.Function.Name,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}
	return a.gateway.Invoke(ctx, call.Function.Name, args)
}

// errorResult converts a reasoning-call failure into an ERROR stage result.
// The case stays at the current stage; the next human turn retries.
func (a *StageAgent) errorResult(ctx context.Context, err error, invocations []mcp.Invocation, round int) workflow.StageResult {
	a.logger.ErrorContext(ctx, "stage.run.failed",
		slog.String("stage", a.def.Name),
		slog.Int("round", round),
		slog.String("error", err.Error()))
	if m, merr := telemetry.GetMetrics(); merr == nil {
		m.RecordStageRun(ctx, a.def.Name, string(workflow.DecisionError))
	}
	return workflow.StageResult{
		Stage: a.def.Name,
		Decision: workflow.Decision{
			Stage:      a.def.Name,
			Decision:   workflow.DecisionError,
			Reason:     err.Error(),
			NextAction: "retry on the next message",
		},
		ToolInvocations: invocations,
		Outcome:         workflow.OutcomeError,
		ErrorDetail:     err.Error(),
		Timestamp:       time.Now().UTC(),
	}
}

// observation renders a tool invocation for the conversation transcript.
func observation(inv mcp.Invocation) string {
	if inv.Error != "" {
		return "tool " + inv.Tool + " failed: " + inv.Error
	}
	if inv.Result == "" {
		return "tool " + inv.Tool + " returned no content"
	}
	return inv.Result
}

var _ workflow.StageAgent = (*StageAgent)(nil)
