package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

// twoStepResolver is a minimal manager -> hr workflow used to exercise the engine
type twoStepResolver struct {
	Sequential
	applyErr error
}

func newTwoStepResolver() *twoStepResolver {
	table := NewTransitionTable(
		StatusNotYetSubmitted, StatusPendingManager, StatusPendingHR,
		StatusApproved, StatusRejected, StatusWithdrawn,
	)
	table.Configure(StatusNotYetSubmitted).
		Permit(TriggerSubmit, StatusPendingManager).
		Permit(TriggerWithdraw, StatusWithdrawn)
	table.Configure(StatusPendingManager).
		Permit(TriggerApprove, StatusPendingHR).
		Permit(TriggerReject, StatusRejected).
		Permit(TriggerWithdraw, StatusWithdrawn)
	table.Configure(StatusPendingHR).
		Permit(TriggerApprove, StatusApproved).
		Permit(TriggerReject, StatusRejected).
		Permit(TriggerWithdraw, StatusWithdrawn)

	return &twoStepResolver{
		Sequential: NewSequential(KindLeave, StatusNotYetSubmitted, table,
			[]Department{DepartmentManager, DepartmentHR},
			map[Department]Status{
				DepartmentManager: StatusPendingManager,
				DepartmentHR:      StatusPendingHR,
			}),
	}
}

func (r *twoStepResolver) Prepare(req *Request) error { return nil }

func (r *twoStepResolver) Apply(ctx context.Context, req *Request, d *Decision) (bool, error) {
	if r.applyErr != nil {
		return false, r.applyErr
	}
	return true, nil
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(r Resolver) *Engine {
	return NewEngine([]Resolver{r},
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "decision-1" }),
	)
}

func newLeave(status Status) *Request {
	return &Request{
		ID:            100,
		Kind:          KindLeave,
		RequestedByID: "emp-1",
		Status:        status,
		Details: Details{Leave: &LeaveDetails{
			LeaveFrom: fixedNow.AddDate(0, 0, 10),
			LeaveTo:   fixedNow.AddDate(0, 0, 12),
		}},
	}
}

var (
	managerCaps = Capabilities{"canApproveAsManager": true}
	hrCaps      = Capabilities{"canApproveAsHR": true}
)

func TestEngine_CurrentStage(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())

	tests := []struct {
		name    string
		request *Request
		want    Stage
	}{
		{"unsubmitted", newLeave(StatusNotYetSubmitted), StageEmployee},
		{"awaiting manager", newLeave(StatusPendingManager), StageManager},
		{"terminal", newLeave(StatusRejected), StageTerminal},
		{"unknown kind", &Request{Kind: Kind("visa"), Status: StatusPendingHR}, StageTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.CurrentStage(tt.request); got != tt.want {
				t.Errorf("CurrentStage() = %v, want %v", got, tt.want)
			}
		})
	}

	// stage is keyed by department presence, not by slice position
	req := newLeave(StatusPendingHR)
	req.AdminActions = []Decision{{Department: DepartmentManager, Outcome: OutcomeApproved}}
	if got := engine.CurrentStage(req); got != StageHR {
		t.Errorf("CurrentStage() = %v, want %v", got, StageHR)
	}
}

func TestEngine_CanAct(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())
	req := newLeave(StatusPendingManager)

	if !engine.CanAct(req, managerCaps, StageManager) {
		t.Error("manager with capability should be able to act")
	}
	if engine.CanAct(req, hrCaps, StageManager) {
		t.Error("HR should not act at the manager stage")
	}
	if engine.CanAct(req, managerCaps, StageTerminal) {
		t.Error("nobody acts at the terminal stage")
	}

	req.AdminActions = []Decision{{Department: DepartmentManager, Outcome: OutcomeApproved}}
	if engine.CanAct(req, managerCaps, StageManager) {
		t.Error("a department that already decided cannot act again")
	}
}

func TestEngine_SubmitThenDecide(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())
	req := newLeave(StatusNotYetSubmitted)

	submitted, err := engine.ApplyDecision(context.Background(), req, nil, Decision{Department: DepartmentEmployee, ActorID: "emp-1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submitted.Status != StatusPendingManager || len(submitted.AdminActions) != 0 {
		t.Fatalf("after submit: status=%v actions=%d", submitted.Status, len(submitted.AdminActions))
	}
	if req.Status != StatusNotYetSubmitted {
		t.Error("ApplyDecision must not modify its input")
	}

	approved, err := engine.ApplyDecision(context.Background(), submitted, managerCaps, Decision{
		Department: DepartmentManager, Outcome: OutcomeApproved, ActorID: "mgr-1",
	})
	if err != nil {
		t.Fatalf("manager decision failed: %v", err)
	}
	if approved.Status != StatusPendingHR {
		t.Errorf("status = %v, want %v", approved.Status, StatusPendingHR)
	}
	got := approved.AdminActions[0]
	if got.ID != "decision-1" || !got.RecordedAt.Equal(fixedNow) {
		t.Errorf("decision defaults not applied: %+v", got)
	}
}

func TestEngine_ApplyDecisionErrors(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())
	ctx := context.Background()

	decided := newLeave(StatusPendingHR)
	decided.AdminActions = []Decision{{Department: DepartmentManager, Outcome: OutcomeApproved}}

	tests := []struct {
		name    string
		request *Request
		caps    Capabilities
		d       Decision
		want    error
	}{
		{"terminal", newLeave(StatusApproved), hrCaps, Decision{Department: DepartmentHR, Outcome: OutcomeApproved}, ErrAlreadyTerminal},
		{"not submitted", newLeave(StatusNotYetSubmitted), managerCaps, Decision{Department: DepartmentManager, Outcome: OutcomeApproved}, ErrInvalidTransition},
		{"wrong stage", newLeave(StatusPendingManager), hrCaps, Decision{Department: DepartmentHR, Outcome: OutcomeApproved}, ErrInvalidTransition},
		{"second decision", decided, managerCaps, Decision{Department: DepartmentManager, Outcome: OutcomeApproved}, ErrInvalidTransition},
		{"missing capability", newLeave(StatusPendingManager), hrCaps, Decision{Department: DepartmentManager, Outcome: OutcomeApproved}, ErrForbidden},
		{"bad outcome", newLeave(StatusPendingManager), managerCaps, Decision{Department: DepartmentManager, Outcome: "maybe"}, ErrInvalidDecision},
		{"submit twice", newLeave(StatusPendingManager), nil, Decision{Department: DepartmentEmployee, ActorID: "emp-1"}, ErrInvalidTransition},
		{"submit by other", newLeave(StatusNotYetSubmitted), nil, Decision{Department: DepartmentEmployee, ActorID: "emp-2"}, ErrForbidden},
		{"unknown kind", &Request{Kind: Kind("visa"), Status: StatusPendingHR}, hrCaps, Decision{Department: DepartmentHR}, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ApplyDecision(ctx, tt.request, tt.caps, tt.d)
			if !errors.Is(err, tt.want) {
				t.Errorf("ApplyDecision() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEngine_ApplyDecisionPropagatesResolverError(t *testing.T) {
	resolver := newTwoStepResolver()
	resolver.applyErr = ErrResourceUnavailable
	engine := newTestEngine(resolver)

	_, err := engine.ApplyDecision(context.Background(), newLeave(StatusPendingManager), managerCaps,
		Decision{Department: DepartmentManager, Outcome: OutcomeApproved})
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("ApplyDecision() error = %v, want %v", err, ErrResourceUnavailable)
	}
}

func TestEngine_ManagerRejectionSkipsHR(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())

	next, err := engine.ApplyDecision(context.Background(), newLeave(StatusPendingManager), managerCaps,
		Decision{Department: DepartmentManager, Outcome: OutcomeRejected})
	if err != nil {
		t.Fatalf("ApplyDecision() failed: %v", err)
	}
	if next.Status != StatusRejected {
		t.Errorf("status = %v, want %v", next.Status, StatusRejected)
	}
	if engine.CurrentStage(next) != StageTerminal {
		t.Error("rejected request should be at the terminal stage")
	}
}

func TestEngine_Withdraw(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())

	next, err := engine.Withdraw(newLeave(StatusPendingManager), "emp-1")
	if err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if next.Status != StatusWithdrawn {
		t.Errorf("status = %v, want %v", next.Status, StatusWithdrawn)
	}

	if _, err := engine.Withdraw(next, "emp-1"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("second Withdraw() error = %v, want %v", err, ErrAlreadyTerminal)
	}
	if _, err := engine.Withdraw(newLeave(StatusPendingManager), "emp-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Withdraw() by non-owner error = %v, want %v", err, ErrForbidden)
	}
}

func TestCanWithdraw_LeaveDateGate(t *testing.T) {
	req := newLeave(StatusPendingHR)
	start := req.Details.Leave.LeaveFrom

	if !CanWithdraw(req, "emp-1", start.Add(-time.Second)) {
		t.Error("withdrawal should be allowed before the leave starts")
	}
	if CanWithdraw(req, "emp-1", start) {
		t.Error("withdrawal should be refused on the leave start")
	}
	if CanWithdraw(req, "emp-1", start.AddDate(0, 0, 1)) {
		t.Error("withdrawal should be refused after the leave started")
	}
}

func TestEngine_LegalTransitions(t *testing.T) {
	engine := newTestEngine(newTwoStepResolver())

	got := engine.LegalTransitions(newLeave(StatusPendingManager))
	if len(got) != 3 {
		t.Fatalf("LegalTransitions() returned %d transitions, want 3", len(got))
	}
	if len(engine.LegalTransitions(newLeave(StatusApproved))) != 0 {
		t.Error("terminal status should have no transitions")
	}
}

func TestSequential_ResolveStatusIsDeterministic(t *testing.T) {
	resolver := newTwoStepResolver()
	actions := []Decision{
		{Department: DepartmentManager, Outcome: OutcomeApproved},
		{Department: DepartmentHR, Outcome: OutcomeRejected},
	}

	first := resolver.ResolveStatus(true, actions)
	second := resolver.ResolveStatus(true, actions)
	if first != second || first != StatusRejected {
		t.Errorf("ResolveStatus() = %v then %v, want %v twice", first, second, StatusRejected)
	}
	if got := resolver.ResolveStatus(false, nil); got != StatusNotYetSubmitted {
		t.Errorf("ResolveStatus(unsubmitted) = %v, want %v", got, StatusNotYetSubmitted)
	}
}
