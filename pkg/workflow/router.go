// SPDX-License-Identifier: Apache-2.0

package workflow

// Signal tells the graph runner whether to run a stage or halt.
type Signal string

const (
	SignalGo   Signal = "GO"
	SignalStop Signal = "STOP"
)

// StageFinish marks the routing target past the terminal stage.
const StageFinish = "FINISH"

// Routing is one router verdict. NextStage is the stage to run on GO, or
// StageFinish on the STOP that completes the case.
type Routing struct {
	Signal    Signal
	NextStage string
}

// Router decides, per graph re-entry, whether to run the current stage,
// cascade to the next one, or halt and wait for human input. It is a pure
// function of case state; the runner applies the stage advance it indicates.
type Router struct {
	stages []string
	index  map[string]int
}

// NewRouter creates a router over the fixed, ordered stage sequence.
func NewRouter(stages []string) *Router {
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		index[s] = i
	}
	return &Router{stages: stages, index: index}
}

// Stages returns the ordered stage identifiers.
func (r *Router) Stages() []string {
	out := make([]string, len(r.stages))
	copy(out, r.stages)
	return out
}

// FirstStage returns the entry stage of the sequence.
func (r *Router) FirstStage() string {
	if len(r.stages) == 0 {
		return ""
	}
	return r.stages[0]
}

// Route evaluates the transition rule against the last conversation entry.
//
// A fresh human turn always (re)runs the current stage. After a stage runs,
// only a PASS cascades forward; REVIEW, FAIL, and ERROR halt until the next
// human turn, so no stage is ever re-entered automatically.
func (r *Router) Route(c *Case) Routing {
	last := c.LastMessage()
	if last == nil {
		return Routing{Signal: SignalStop}
	}

	idx, known := r.index[c.CurrentStage]
	if !known {
		return Routing{Signal: SignalStop}
	}

	if last.Role == RoleHuman {
		return Routing{Signal: SignalGo, NextStage: c.CurrentStage}
	}

	result := c.LatestStageResult(c.CurrentStage)
	if result == nil || result.Decision.Decision != DecisionPass {
		return Routing{Signal: SignalStop}
	}

	if idx == len(r.stages)-1 {
		return Routing{Signal: SignalStop, NextStage: StageFinish}
	}
	return Routing{Signal: SignalGo, NextStage: r.stages[idx+1]}
}
