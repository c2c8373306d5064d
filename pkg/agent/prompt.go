package agent

import (
	"encoding/json"
	"strings"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

// defaultHistoryWindow bounds how many recent conversation entries enter
// the context block.
const defaultHistoryWindow = 10

// decisionFormat instructs the model to end with the machine-readable
// verdict the parser extracts.
const decisionFormat = `When you have reached a verdict, end your reply with a single JSON object of this exact shape:
{"stage": "<stage>", "decision": "PASS|REVIEW|FAIL", "reason": "<internal reason>", "user_message": "<message for the customer>", "checks": [{"name": "<check>", "status": "PASS|FAIL", "detail": "<detail>"}], "risk_level": "LOW|MEDIUM|HIGH", "next_action": "<hint>"}
Use PASS only when every check passes. Use REVIEW when information is missing or a human should look. Use FAIL when a check definitively fails.`

// buildSystemPrompt combines the stage's role text with the required-field
// checklist and the decision format contract.
func buildSystemPrompt(def StageDefinition) string {
	var b strings.Builder
	b.WriteString(def.Role)
	if len(def.RequiredFields) > 0 {
		b.WriteString("\n\nRequired fields for this stage: ")
		b.WriteString(strings.Join(def.RequiredFields, ", "))
		b.WriteString(".")
	}
	b.WriteString("\n\n")
	b.WriteString(decisionFormat)
	return b.String()
}

// buildContextBlock serializes the case data and the trailing conversation
// window into the user prompt.
func buildContextBlock(c *workflow.Case, historyWindow int) string {
	var b strings.Builder

	b.WriteString("Case data collected so far:\n")
	if len(c.Data) == 0 {
		b.WriteString("(none)\n")
	} else if encoded, err := json.MarshalIndent(c.Data, "", "  "); err == nil {
		b.Write(encoded)
		b.WriteString("\n")
	}

	recent := c.RecentMessages(historyWindow)
	if len(recent) > 0 {
		b.WriteString("\nConversation:\n")
		for _, msg := range recent {
			b.WriteString(string(msg.Role))
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
