// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/telemetry"
)

// ErrCaseNotFound is returned by stores when a case id is unknown.
var ErrCaseNotFound = errors.New("case not found")

// Store is the persistence the runner needs. Save must be atomic per case.
type Store interface {
	Load(ctx context.Context, caseID string) (*Case, error)
	Save(ctx context.Context, c *Case) error
}

// StageAgent produces one StageResult per run. Implementations never return
// an error; failures are encoded in the result's outcome.
type StageAgent interface {
	Name() string
	Run(ctx context.Context, c *Case) StageResult
}

const (
	// genericReply is returned when a turn produced no user-facing text.
	genericReply = "Thank you. Your request has been received and is being processed."

	// incompleteReply is returned when the re-entry ceiling cut a turn short.
	incompleteReply = "We're still processing your request. Please send another message to continue."
)

// Runner wires stage agents and the router into one re-entrant unit that
// processes a single human turn end to end.
type Runner struct {
	router   *Router
	agents   map[string]StageAgent
	store    Store
	maxSteps int
	turnHook TurnHook
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// TurnHook runs inside a turn, after the human message is appended and
// before routing starts. It can fold extracted fields into the case data.
type TurnHook func(c *Case, humanMessage string)

// RunnerOption customizes runner behavior.
type RunnerOption func(*Runner)

// WithTurnHook registers a hook applied to every inbound human turn.
func WithTurnHook(hook TurnHook) RunnerOption {
	return func(r *Runner) {
		r.turnHook = hook
	}
}

// WithMaxSteps overrides the graph re-entry ceiling per turn.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithRunnerLogger sets the logger used for graph-run events.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner builds a runner over the router's stage order. Every stage must
// have an agent.
func NewRunner(router *Router, agents []StageAgent, store Store, opts ...RunnerOption) (*Runner, error) {
	if router == nil || store == nil {
		return nil, fmt.Errorf("runner: router and store are required")
	}
	byName := make(map[string]StageAgent, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}
	for _, stage := range router.Stages() {
		if byName[stage] == nil {
			return nil, fmt.Errorf("runner: no agent for stage %q", stage)
		}
	}
	r := &Runner{
		router: router,
		agents: byName,
		store:  store,
		// Router monotonicity already bounds a turn to one run per stage;
		// the ceiling is a second, independent guard.
		maxSteps: len(router.Stages()) + 2,
		logger:   slog.Default(),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// CreateCase creates and persists a fresh case at the first stage.
func (r *Runner) CreateCase(ctx context.Context) (*Case, error) {
	c := NewCase(uuid.NewString(), r.router.FirstStage())
	if err := r.store.Save(ctx, c); err != nil {
		return nil, werrors.New(werrors.CodeSessionError, "failed to persist new case", err)
	}
	return c, nil
}

// GetCase loads a case from the store.
func (r *Runner) GetCase(ctx context.Context, caseID string) (*Case, error) {
	c, err := r.store.Load(ctx, caseID)
	if err != nil {
		if errors.Is(err, ErrCaseNotFound) {
			return nil, werrors.New(werrors.CodeNotFound, fmt.Sprintf("case %q not found", caseID), err)
		}
		return nil, werrors.New(werrors.CodeSessionError, "failed to load case", err)
	}
	return c, nil
}

// Advance processes one inbound human message: it appends the message,
// re-enters the router until it halts or the ceiling trips, and persists the
// folded state in a single save. The returned string is the latest
// user-facing reply. Turns for the same case are serialized; turns for
// different cases run concurrently.
func (r *Runner) Advance(ctx context.Context, caseID, humanMessage string) (*Case, string, error) {
	unlock := r.lockCase(caseID)
	defer unlock()

	c, err := r.GetCase(ctx, caseID)
	if err != nil {
		return nil, "", err
	}

	ctx, span := otel.Tracer("onboard/workflow").Start(ctx, "graph.run")
	defer span.End()

	c.AppendHumanMessage(humanMessage)
	if r.turnHook != nil {
		r.turnHook(c, humanMessage)
	}

	steps := 0
	reply := ""
	incomplete := false
	for {
		route := r.router.Route(c)
		if route.Signal == SignalStop {
			if route.NextStage == StageFinish {
				c.Complete()
			}
			break
		}
		if steps >= r.maxSteps {
			incomplete = true
			r.logger.WarnContext(ctx, "graph.run.ceiling",
				slog.String("case_id", c.ID),
				slog.Int("steps", steps),
				slog.String("stage", c.CurrentStage))
			break
		}
		if route.NextStage != c.CurrentStage {
			c.AdvanceStage(route.NextStage)
		}

		agent := r.agents[c.CurrentStage]
		if agent == nil {
			// Stage roster drift between router and agents.
			r.logger.ErrorContext(ctx, "graph.run.no_agent",
				slog.String("case_id", c.ID),
				slog.String("stage", c.CurrentStage))
			break
		}

		result := agent.Run(ctx, c)
		c.AppendStageResult(result)
		text := replyText(result)
		c.AppendAgentMessage(text)
		reply = text
		steps++

		// A cancelled request abandons the turn without saving, leaving the
		// stored case exactly as it was.
		if err := ctx.Err(); err != nil {
			return nil, "", werrors.New(werrors.CodeTimeout, "turn cancelled", err).WithRecoverable(true)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, "", werrors.New(werrors.CodeTimeout, "turn cancelled", err).WithRecoverable(true)
	}
	if incomplete {
		reply = incompleteReply
		c.AppendAgentMessage(reply)
	}
	if reply == "" {
		reply = genericReply
	}

	if err := r.store.Save(ctx, c); err != nil {
		return nil, "", werrors.New(werrors.CodeSessionError, "failed to persist case", err)
	}

	span.SetAttributes(telemetry.CaseAttributes(c.ID, c.CurrentStage, string(c.Status))...)
	if m, err := telemetry.GetMetrics(); err == nil {
		m.RecordGraphRun(ctx, string(c.Status), steps)
	}
	r.logger.InfoContext(ctx, "graph.run.done",
		slog.String("case_id", c.ID),
		slog.String("stage", c.CurrentStage),
		slog.String("status", string(c.Status)),
		slog.Int("steps", steps))

	return c, reply, nil
}

// replyText selects the user-facing reply for one stage result.
func replyText(result StageResult) string {
	if result.Decision.UserMessage != "" {
		return result.Decision.UserMessage
	}
	if result.RawCompletion != "" {
		return result.RawCompletion
	}
	return genericReply
}

// lockCase serializes turns per case id. Lock entries are never removed; the
// map is bounded by the number of distinct cases this process has touched.
func (r *Runner) lockCase(caseID string) func() {
	r.mu.Lock()
	lock, ok := r.locks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[caseID] = lock
	}
	r.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
