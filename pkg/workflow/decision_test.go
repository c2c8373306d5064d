package workflow

import (
	"strings"
	"testing"
)

func TestParseDecisionWellFormed(t *testing.T) {
	raw := `Here is my assessment:
{"stage":"eligibility","decision":"PASS","reason":"all criteria met","user_message":"You qualify.","checks":[{"name":"age","status":"PASS","detail":"34"}],"risk_level":"LOW","next_action":"proceed"}`

	d := ParseDecision("eligibility", raw)
	if d.Decision != DecisionPass {
		t.Fatalf("decision = %s, want PASS", d.Decision)
	}
	if d.Reason != "all criteria met" || d.UserMessage != "You qualify." {
		t.Errorf("fields lost: %+v", d)
	}
	if len(d.Checks) != 1 || d.Checks[0].Name != "age" {
		t.Errorf("checks lost: %+v", d.Checks)
	}
	if d.RiskLevel != RiskLow || d.NextAction != "proceed" {
		t.Errorf("optional fields lost: %+v", d)
	}
}

func TestParseDecisionNormalizesCase(t *testing.T) {
	d := ParseDecision("intake", `{"decision":"pass"}`)
	if d.Decision != DecisionPass {
		t.Fatalf("decision = %s, want PASS", d.Decision)
	}
	if d.Stage != "intake" {
		t.Errorf("stage not defaulted: %q", d.Stage)
	}
	if d.Checks == nil {
		t.Error("checks must default to empty, not nil")
	}
}

func TestParseDecisionTotal(t *testing.T) {
	inputs := []string{
		"",
		"plain prose with no json at all",
		"{not valid json}",
		`{"reason":"no decision field"}`,
		`{"decision":"MAYBE"}`,
		"{",
		"}{",
	}
	for _, in := range inputs {
		d := ParseDecision("verification", in)
		if d.Decision != DecisionReview {
			t.Errorf("input %q: decision = %s, want REVIEW fallback", in, d.Decision)
		}
		if d.RiskLevel != RiskMedium {
			t.Errorf("input %q: risk = %s, want MEDIUM fallback", in, d.RiskLevel)
		}
		if d.Checks == nil {
			t.Errorf("input %q: checks is nil", in)
		}
		if d.Reason == "" {
			t.Errorf("input %q: reason is empty", in)
		}
	}
}

func TestParseDecisionFallbackTruncatesReason(t *testing.T) {
	long := strings.Repeat("x", 2000)
	d := ParseDecision("intake", long)
	if len(d.Reason) != maxFallbackReasonLen {
		t.Fatalf("reason length %d, want %d", len(d.Reason), maxFallbackReasonLen)
	}
}

func TestParseDecisionInvalidRiskCleared(t *testing.T) {
	d := ParseDecision("intake", `{"decision":"FAIL","risk_level":"EXTREME"}`)
	if d.Decision != DecisionFail {
		t.Fatalf("decision = %s", d.Decision)
	}
	if d.RiskLevel != "" {
		t.Errorf("invalid risk level kept: %q", d.RiskLevel)
	}
}

func TestExtractJSONObjectGreedy(t *testing.T) {
	raw := `noise {"a":{"b":1}} trailing`
	got := extractJSONObject(raw)
	if got != `{"a":{"b":1}}` {
		t.Fatalf("got %q", got)
	}
}
