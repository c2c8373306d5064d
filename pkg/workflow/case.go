// SPDX-License-Identifier: Apache-2.0

// Package workflow contains the onboarding case model, the decision parser,
// the stage router, and the graph runner that drives a case through the
// staged review sequence.
package workflow

import (
	"encoding/json"
	"time"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/mcp"
)

// Status is the lifecycle state of a case.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleHuman MessageRole = "human"
	RoleAgent MessageRole = "agent"
)

// Message is one entry of a case's append-only conversation log.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Outcome marks whether a stage run completed or failed at the reasoning
// boundary.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// StageResult is the record of one stage-agent execution.
type StageResult struct {
	Stage           string           `json:"stage"`
	RawCompletion   string           `json:"raw_completion"`
	Decision        Decision         `json:"decision"`
	ToolInvocations []mcp.Invocation `json:"tool_invocations,omitempty"`
	Outcome         Outcome          `json:"outcome"`
	ErrorDetail     string           `json:"error_detail,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Case is the authoritative record of one customer's onboarding progress.
// It is mutated only through the methods below; the session store persists
// it whole.
type Case struct {
	ID           string                   `json:"id"`
	Data         map[string]interface{}   `json:"case_data"`
	Status       Status                   `json:"status"`
	CurrentStage string                   `json:"current_stage"`
	Messages     []Message                `json:"messages"`
	StageResults map[string][]StageResult `json:"stage_results"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// NewCase creates a case at the first stage with no collected data.
func NewCase(id, firstStage string) *Case {
	now := time.Now().UTC()
	return &Case{
		ID:           id,
		Data:         make(map[string]interface{}),
		Status:       StatusInProgress,
		CurrentStage: firstStage,
		StageResults: make(map[string][]StageResult),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AppendHumanMessage appends a human turn to the conversation log.
func (c *Case) AppendHumanMessage(content string) {
	c.appendMessage(RoleHuman, content)
}

// AppendAgentMessage appends an agent turn to the conversation log.
func (c *Case) AppendAgentMessage(content string) {
	c.appendMessage(RoleAgent, content)
}

func (c *Case) appendMessage(role MessageRole, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	c.UpdatedAt = time.Now().UTC()
}

// AppendStageResult records one stage execution. A stage can accumulate
// multiple results across turns.
func (c *Case) AppendStageResult(result StageResult) {
	if c.StageResults == nil {
		c.StageResults = make(map[string][]StageResult)
	}
	c.StageResults[result.Stage] = append(c.StageResults[result.Stage], result)
	c.UpdatedAt = time.Now().UTC()
}

// AdvanceStage moves the case to the given stage.
func (c *Case) AdvanceStage(stage string) {
	c.CurrentStage = stage
	c.UpdatedAt = time.Now().UTC()
}

// Complete marks the case finished.
func (c *Case) Complete() {
	c.Status = StatusComplete
	c.UpdatedAt = time.Now().UTC()
}

// SetField stores one collected case-data field.
func (c *Case) SetField(name string, value interface{}) {
	if c.Data == nil {
		c.Data = make(map[string]interface{})
	}
	c.Data[name] = value
	c.UpdatedAt = time.Now().UTC()
}

// LastMessage returns the most recent conversation entry, or nil when the
// log is empty.
func (c *Case) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// LatestStageResult returns the most recent result for the given stage, or
// nil when the stage has not run.
func (c *Case) LatestStageResult(stage string) *StageResult {
	results := c.StageResults[stage]
	if len(results) == 0 {
		return nil
	}
	return &results[len(results)-1]
}

// RecentMessages returns up to n of the most recent conversation entries.
func (c *Case) RecentMessages(n int) []Message {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	if n > len(c.Messages) {
		n = len(c.Messages)
	}
	out := make([]Message, n)
	copy(out, c.Messages[len(c.Messages)-n:])
	return out
}

// Clone returns a deep copy of the case. The runner mutates a clone so an
// abandoned turn leaves the stored case untouched.
func (c *Case) Clone() (*Case, error) {
	encoded, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out Case
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = make(map[string]interface{})
	}
	if out.StageResults == nil {
		out.StageResults = make(map[string][]StageResult)
	}
	return &out, nil
}
