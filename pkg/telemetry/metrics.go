// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the workflow instruments. Instruments are created lazily so
// tests can run without a configured meter provider (the otel default is a
// no-op).
type Metrics struct {
	GraphRuns      metric.Int64Counter
	GraphSteps     metric.Int64Histogram
	StageRuns      metric.Int64Counter
	StageDecisions metric.Int64Counter
	ToolCalls      metric.Int64Counter
	LLMLatencyMs   metric.Float64Histogram
	ToolLatencyMs  metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
	metricsErr  error
)

// GetMetrics returns the shared workflow metrics, creating them on first use.
func GetMetrics() (*Metrics, error) {
	metricsOnce.Do(func() {
		meter := otel.Meter("onboard/workflow")
		m := &Metrics{}

		if m.GraphRuns, metricsErr = meter.Int64Counter(
			"onboard.graph.runs",
			metric.WithDescription("Graph runs per inbound human turn"),
		); metricsErr != nil {
			return
		}
		if m.GraphSteps, metricsErr = meter.Int64Histogram(
			"onboard.graph.steps",
			metric.WithDescription("Router re-entries consumed per graph run"),
		); metricsErr != nil {
			return
		}
		if m.StageRuns, metricsErr = meter.Int64Counter(
			"onboard.stage.runs",
			metric.WithDescription("Stage agent executions"),
		); metricsErr != nil {
			return
		}
		if m.StageDecisions, metricsErr = meter.Int64Counter(
			"onboard.stage.decisions",
			metric.WithDescription("Stage decisions by value"),
		); metricsErr != nil {
			return
		}
		if m.ToolCalls, metricsErr = meter.Int64Counter(
			"onboard.tool.calls",
			metric.WithDescription("Gateway tool invocations by outcome"),
		); metricsErr != nil {
			return
		}
		if m.LLMLatencyMs, metricsErr = meter.Float64Histogram(
			"onboard.llm.latency_ms",
			metric.WithDescription("Completion call latency in milliseconds"),
		); metricsErr != nil {
			return
		}
		if m.ToolLatencyMs, metricsErr = meter.Float64Histogram(
			"onboard.tool.latency_ms",
			metric.WithDescription("Tool invocation latency in milliseconds"),
		); metricsErr != nil {
			return
		}
		metricsInst = m
	})
	return metricsInst, metricsErr
}

// RecordToolCall records one gateway invocation outcome.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, service string, durationMs int64, success bool) {
	attrs := metric.WithAttributes(
		attribute.String(AttrToolName, tool),
		attribute.String(AttrToolService, service),
		attribute.Bool(AttrToolSuccess, success),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolLatencyMs.Record(ctx, float64(durationMs), attrs)
}

// RecordStageRun records one stage-agent execution and its decision.
func (m *Metrics) RecordStageRun(ctx context.Context, stage, decision string) {
	m.StageRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStageName, stage),
	))
	m.StageDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStageName, stage),
		attribute.String(AttrStageDecision, decision),
	))
}

// RecordGraphRun records one graph run and the steps it consumed.
func (m *Metrics) RecordGraphRun(ctx context.Context, status string, steps int) {
	m.GraphRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCaseStatus, status),
	))
	m.GraphSteps.Record(ctx, int64(steps))
}

// RecordLLMCall records completion-call latency.
func (m *Metrics) RecordLLMCall(ctx context.Context, model string, durationMs int64) {
	m.LLMLatencyMs.Record(ctx, float64(durationMs), metric.WithAttributes(
		attribute.String(AttrLLMModel, model),
	))
}
