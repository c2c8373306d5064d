package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
)

// fakeStore is a minimal in-memory Store for runner tests.
type fakeStore struct {
	mu    sync.Mutex
	cases map[string]*Case
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{cases: make(map[string]*Case)}
}

func (s *fakeStore) Load(_ context.Context, caseID string) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return c.Clone()
}

func (s *fakeStore) Save(_ context.Context, c *Case) error {
	clone, err := c.Clone()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = clone
	s.saves++
	return nil
}

// fixedAgent returns the same decision every run.
type fixedAgent struct {
	name     string
	decision DecisionValue
	outcome  Outcome
	runs     int
}

func (a *fixedAgent) Name() string { return a.name }

func (a *fixedAgent) Run(_ context.Context, _ *Case) StageResult {
	a.runs++
	result := StageResult{
		Stage:         a.name,
		RawCompletion: "completion for " + a.name,
		Decision: Decision{
			Stage:       a.name,
			Decision:    a.decision,
			UserMessage: "reply from " + a.name,
		},
		Outcome: a.outcome,
	}
	if a.outcome == OutcomeError {
		result.Decision = Decision{Stage: a.name, Decision: DecisionError}
		result.ErrorDetail = "reasoning call timed out"
	}
	return result
}

func newTestRunner(t *testing.T, store Store, agents ...StageAgent) *Runner {
	t.Helper()
	stages := make([]string, len(agents))
	for i, a := range agents {
		stages[i] = a.Name()
	}
	r, err := NewRunner(NewRouter(stages), agents, store)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func seedCase(t *testing.T, store *fakeStore, firstStage string) *Case {
	t.Helper()
	c := NewCase("case-1", firstStage)
	if err := store.Save(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestAdvanceCascadesUntilReview(t *testing.T) {
	store := newFakeStore()
	intake := &fixedAgent{name: "intake", decision: DecisionPass, outcome: OutcomeSuccess}
	verification := &fixedAgent{name: "verification", decision: DecisionPass, outcome: OutcomeSuccess}
	eligibility := &fixedAgent{name: "eligibility", decision: DecisionReview, outcome: OutcomeSuccess}
	r := newTestRunner(t, store, intake, verification, eligibility)
	seedCase(t, store, "intake")

	c, reply, err := r.Advance(context.Background(), "case-1", "please onboard me")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if c.CurrentStage != "eligibility" {
		t.Errorf("currentStage = %q, want eligibility", c.CurrentStage)
	}
	if c.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", c.Status)
	}
	for _, stage := range []string{"intake", "verification", "eligibility"} {
		if n := len(c.StageResults[stage]); n != 1 {
			t.Errorf("stageResults[%s] has %d entries, want 1", stage, n)
		}
	}
	if reply != "reply from eligibility" {
		t.Errorf("reply = %q", reply)
	}
	if intake.runs != 1 || verification.runs != 1 || eligibility.runs != 1 {
		t.Errorf("run counts: %d %d %d", intake.runs, verification.runs, eligibility.runs)
	}
}

func TestAdvanceCompletesOnTerminalPass(t *testing.T) {
	store := newFakeStore()
	r := newTestRunner(t, store,
		&fixedAgent{name: "intake", decision: DecisionPass, outcome: OutcomeSuccess},
		&fixedAgent{name: "action", decision: DecisionPass, outcome: OutcomeSuccess},
	)
	seedCase(t, store, "intake")

	c, _, err := r.Advance(context.Background(), "case-1", "go")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if c.Status != StatusComplete {
		t.Errorf("status = %q, want complete", c.Status)
	}
	if c.CurrentStage != "action" {
		t.Errorf("currentStage = %q, want action", c.CurrentStage)
	}
}

func TestAdvanceNoProgressOnNonPass(t *testing.T) {
	for _, d := range []DecisionValue{DecisionReview, DecisionFail} {
		store := newFakeStore()
		r := newTestRunner(t, store,
			&fixedAgent{name: "intake", decision: d, outcome: OutcomeSuccess},
			&fixedAgent{name: "verification", decision: DecisionPass, outcome: OutcomeSuccess},
		)
		seedCase(t, store, "intake")

		c, _, err := r.Advance(context.Background(), "case-1", "go")
		if err != nil {
			t.Fatalf("%s: Advance: %v", d, err)
		}
		if c.CurrentStage != "intake" || c.Status != StatusInProgress {
			t.Errorf("%s: stage=%q status=%q, want intake/in_progress", d, c.CurrentStage, c.Status)
		}
	}
}

func TestAdvanceErrorAtTerminalStage(t *testing.T) {
	store := newFakeStore()
	r := newTestRunner(t, store,
		&fixedAgent{name: "action", outcome: OutcomeError},
	)
	seedCase(t, store, "action")

	c, _, err := r.Advance(context.Background(), "case-1", "finish up")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if c.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", c.Status)
	}
	if c.CurrentStage != "action" {
		t.Errorf("currentStage = %q, want action", c.CurrentStage)
	}
	results := c.StageResults["action"]
	if len(results) != 1 || results[0].Outcome != OutcomeError {
		t.Errorf("expected one error-outcome result, got %+v", results)
	}
}

func TestAdvanceCeilingSurfacesIncomplete(t *testing.T) {
	store := newFakeStore()
	r, err := NewRunner(
		NewRouter([]string{"intake", "verification", "eligibility"}),
		[]StageAgent{
			&fixedAgent{name: "intake", decision: DecisionPass, outcome: OutcomeSuccess},
			&fixedAgent{name: "verification", decision: DecisionPass, outcome: OutcomeSuccess},
			&fixedAgent{name: "eligibility", decision: DecisionPass, outcome: OutcomeSuccess},
		},
		store,
		WithMaxSteps(1),
	)
	if err != nil {
		t.Fatal(err)
	}
	seedCase(t, store, "intake")

	c, reply, err := r.Advance(context.Background(), "case-1", "go")
	if err != nil {
		t.Fatalf("ceiling must not error: %v", err)
	}
	if reply != incompleteReply {
		t.Errorf("reply = %q, want incomplete notice", reply)
	}
	if c.CurrentStage != "intake" {
		t.Errorf("currentStage = %q, want intake (no advance past ceiling)", c.CurrentStage)
	}
	// State was still persisted.
	stored, err := store.Load(context.Background(), "case-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.StageResults["intake"]) != 1 {
		t.Errorf("persisted state missing intake result")
	}
}

func TestAdvanceUnknownCase(t *testing.T) {
	r := newTestRunner(t, newFakeStore(),
		&fixedAgent{name: "intake", decision: DecisionPass, outcome: OutcomeSuccess},
	)

	_, _, err := r.Advance(context.Background(), "ghost", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	we := werrors.AsWorkflowError(err)
	if we.Code != werrors.CodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", we.Code)
	}
	if !errors.Is(err, ErrCaseNotFound) {
		t.Error("expected ErrCaseNotFound in chain")
	}
}

func TestAdvanceCancelledTurnNotSaved(t *testing.T) {
	store := newFakeStore()
	r := newTestRunner(t, store,
		&fixedAgent{name: "intake", decision: DecisionPass, outcome: OutcomeSuccess},
		&fixedAgent{name: "verification", decision: DecisionPass, outcome: OutcomeSuccess},
	)
	seedCase(t, store, "intake")
	savesBefore := store.saves

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Advance(ctx, "case-1", "go")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if store.saves != savesBefore {
		t.Errorf("cancelled turn was saved")
	}
	stored, loadErr := store.Load(context.Background(), "case-1")
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if len(stored.Messages) != 0 {
		t.Errorf("stored case mutated by abandoned turn: %+v", stored.Messages)
	}
}

func TestNewRunnerRequiresAgentPerStage(t *testing.T) {
	_, err := NewRunner(
		NewRouter([]string{"intake", "verification"}),
		[]StageAgent{&fixedAgent{name: "intake"}},
		newFakeStore(),
	)
	if err == nil {
		t.Fatal("expected error for missing stage agent")
	}
}

func TestCreateCaseStartsAtFirstStage(t *testing.T) {
	store := newFakeStore()
	r := newTestRunner(t, store,
		&fixedAgent{name: "intake", decision: DecisionPass, outcome: OutcomeSuccess},
	)

	c, err := r.CreateCase(context.Background())
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if c.ID == "" || c.CurrentStage != "intake" || c.Status != StatusInProgress {
		t.Errorf("unexpected new case: %+v", c)
	}
	if _, err := store.Load(context.Background(), c.ID); err != nil {
		t.Errorf("new case not persisted: %v", err)
	}
}
