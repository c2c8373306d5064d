// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"encoding/json"
	"strings"
)

// DecisionValue is the verdict a stage produces.
type DecisionValue string

const (
	DecisionPass   DecisionValue = "PASS"
	DecisionReview DecisionValue = "REVIEW"
	DecisionFail   DecisionValue = "FAIL"
	DecisionError  DecisionValue = "ERROR"
)

// RiskLevel grades the risk a stage attributes to the case.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// CheckStatus is the outcome of one named check inside a decision.
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckFail CheckStatus = "FAIL"
)

// Check is one named verification a stage performed.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Decision is the structured verdict extracted from a stage's final
// completion text. Decision is always set; the remaining fields default when
// the completion omits them.
type Decision struct {
	Stage       string        `json:"stage,omitempty"`
	Decision    DecisionValue `json:"decision"`
	Reason      string        `json:"reason,omitempty"`
	UserMessage string        `json:"user_message,omitempty"`
	Checks      []Check       `json:"checks"`
	RiskLevel   RiskLevel     `json:"risk_level,omitempty"`
	NextAction  string        `json:"next_action,omitempty"`
}

// maxFallbackReasonLen bounds the raw-text excerpt carried into a fallback
// decision's reason.
const maxFallbackReasonLen = 500

const fallbackReason = "completion contained no parsable decision"

// ParseDecision extracts the first balanced JSON object from raw completion
// text and parses it as a Decision. It is total: any input, including empty
// or garbage text, yields a well-formed Decision. Unparsable input degrades
// to REVIEW with MEDIUM risk so a malformed completion routes the case to a
// human instead of passing or crashing it.
func ParseDecision(stage, raw string) Decision {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return defaultDecision(stage, raw)
	}

	var d Decision
	if err := json.Unmarshal([]byte(candidate), &d); err != nil {
		return defaultDecision(stage, raw)
	}

	d.Decision = DecisionValue(strings.ToUpper(strings.TrimSpace(string(d.Decision))))
	switch d.Decision {
	case DecisionPass, DecisionReview, DecisionFail, DecisionError:
	default:
		return defaultDecision(stage, raw)
	}

	if d.Stage == "" {
		d.Stage = stage
	}
	if d.Checks == nil {
		d.Checks = []Check{}
	}
	if d.RiskLevel != "" {
		d.RiskLevel = RiskLevel(strings.ToUpper(strings.TrimSpace(string(d.RiskLevel))))
		switch d.RiskLevel {
		case RiskLow, RiskMedium, RiskHigh:
		default:
			d.RiskLevel = ""
		}
	}
	return d
}

// defaultDecision is the fail-safe for malformed completions.
func defaultDecision(stage, raw string) Decision {
	reason := strings.TrimSpace(raw)
	if reason == "" {
		reason = fallbackReason
	} else if len(reason) > maxFallbackReasonLen {
		reason = reason[:maxFallbackReasonLen]
	}
	return Decision{
		Stage:     stage,
		Decision:  DecisionReview,
		Reason:    reason,
		Checks:    []Check{},
		RiskLevel: RiskMedium,
	}
}

// extractJSONObject returns the greedy longest span from the first '{' to
// the last '}' in the text, or "" when no such span exists.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return ""
	}
	return text[start : end+1]
}
