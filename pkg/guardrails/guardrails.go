// SPDX-License-Identifier: Apache-2.0

// Package guardrails screens inbound customer messages before they reach a
// stage agent, and masks personal data in text that is written to logs.
// Screening gates message content; the workflow router still decides which
// stage runs.
package guardrails

import "log/slog"

// ScreenResult is the outcome of screening one inbound message.
type ScreenResult struct {
	// Blocked indicates the message must not reach the agent.
	Blocked bool

	// Reason is a customer-safe explanation, set when Blocked.
	Reason string

	// Rule identifies the rule that triggered, for logs.
	Rule string
}

// Guard combines the message screens applied to every inbound turn.
type Guard struct {
	injection *InjectionDetector
	masker    *PIIMasker
	logger    *slog.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the guard logger.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Guard with the default screens enabled.
func New(opts ...GuardOption) *Guard {
	g := &Guard{
		injection: NewInjectionDetector(),
		masker:    NewPIIMasker(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ScreenMessage checks one inbound customer message. Blocked messages are
// rejected before the turn starts, so no case state changes.
func (g *Guard) ScreenMessage(message string) ScreenResult {
	if res := g.injection.Check(message); res.Blocked {
		g.logger.Warn("guardrails.blocked",
			slog.String("rule", res.Rule),
			slog.String("message", g.masker.Mask(message)),
		)
		return res
	}
	return ScreenResult{}
}

// MaskForLog masks personal data in text destined for log output.
func (g *Guard) MaskForLog(text string) string {
	return g.masker.Mask(text)
}
