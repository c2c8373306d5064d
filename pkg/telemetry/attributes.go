// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration for the onboarding
// workflow: trace-aware logging, exporters, and span attributes.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for onboarding-workflow telemetry.
const (
	AttrCaseID       = "onboard.case.id"
	AttrCaseStatus   = "onboard.case.status"
	AttrCaseStage    = "onboard.case.stage"
	AttrGraphSteps   = "onboard.graph.steps"
	AttrGraphCeiling = "onboard.graph.ceiling"

	AttrStageName     = "onboard.stage.name"
	AttrStageDecision = "onboard.stage.decision"
	AttrStageOutcome  = "onboard.stage.outcome"
	AttrStageRound    = "onboard.stage.round"
	AttrStageMaxRound = "onboard.stage.max_rounds"

	AttrToolName       = "onboard.tool.name"
	AttrToolService    = "onboard.tool.service"
	AttrToolCallID     = "onboard.tool.call_id"
	AttrToolSuccess    = "onboard.tool.success"
	AttrToolDurationMs = "onboard.tool.duration_ms"

	// LLM attributes follow the gen_ai conventions.
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMToolCalls    = "gen_ai.tool_calls"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
)

// CaseAttributes returns common attributes for graph-run spans.
func CaseAttributes(caseID, stage, status string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCaseID, caseID),
	}
	if stage != "" {
		attrs = append(attrs, attribute.String(AttrCaseStage, stage))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrCaseStatus, status))
	}
	return attrs
}

// StageAttributes returns attributes for a stage-agent run span.
func StageAttributes(stage, decision, outcome string, round, maxRounds int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrStageName, stage),
	}
	if decision != "" {
		attrs = append(attrs, attribute.String(AttrStageDecision, decision))
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(AttrStageOutcome, outcome))
	}
	if round > 0 {
		attrs = append(attrs, attribute.Int(AttrStageRound, round))
	}
	if maxRounds > 0 {
		attrs = append(attrs, attribute.Int(AttrStageMaxRound, maxRounds))
	}
	return attrs
}

// ToolCallAttributes returns attributes for a gateway invocation span.
func ToolCallAttributes(name, service, callID string, durationMs float64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.String(AttrToolService, service),
		attribute.String(AttrToolCallID, callID),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
}

// LLMAttributes returns attributes for completion-call spans.
func LLMAttributes(model, provider string, msgCount, toolCallCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if toolCallCount > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCallCount))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	return attrs
}
