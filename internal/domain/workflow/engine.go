package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine evaluates and applies workflow actions on request snapshots.
// It never touches storage: callers read a snapshot, ask the engine for the next
// snapshot, and commit it with their own concurrency checks.
type Engine struct {
	resolvers map[Kind]Resolver
	now       func() time.Time
	newID     func() string
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithClock sets the time source used for decisions and the withdrawal date gate
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator sets the generator for decision IDs
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine serving the given resolvers
func NewEngine(resolvers []Resolver, opts ...EngineOption) *Engine {
	e := &Engine{
		resolvers: make(map[Kind]Resolver, len(resolvers)),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, r := range resolvers {
		e.resolvers[r.Kind()] = r
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver returns the resolver registered for the kind
func (e *Engine) Resolver(kind Kind) (Resolver, error) {
	r, ok := e.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return r, nil
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// NewRequest validates a new request and puts it in the initial status of its kind
func (e *Engine) NewRequest(req *Request) (*Request, error) {
	res, err := e.Resolver(req.Kind)
	if err != nil {
		return nil, err
	}

	next := req.Clone()
	if err := res.Prepare(next); err != nil {
		return nil, err
	}
	next.Status = res.InitialStatus()
	next.AdminActions = nil
	next.Version = 0
	return next, nil
}

// CurrentStage returns the party eligible to act next. Requests of unknown kinds
// report the terminal stage.
func (e *Engine) CurrentStage(req *Request) Stage {
	if req.Status.IsTerminal() {
		return StageTerminal
	}
	res, ok := e.resolvers[req.Kind]
	if !ok {
		return StageTerminal
	}
	if req.Status == StatusNotYetSubmitted {
		return StageEmployee
	}
	for _, dept := range res.Sequence() {
		if !req.HasDecision(dept) {
			return StageOf(dept)
		}
	}
	return StageTerminal
}

// CanAct returns true if an actor holding caps may decide at the given stage
func (e *Engine) CanAct(req *Request, caps Capabilities, stage Stage) bool {
	if stage == StageTerminal || stage == StageEmployee {
		return false
	}
	dept := stage.Department()
	if req.HasDecision(dept) {
		return false
	}
	return caps.Grants(dept)
}

// LegalTransitions returns the transitions allowed from the request's current status
func (e *Engine) LegalTransitions(req *Request) []Transition {
	res, ok := e.resolvers[req.Kind]
	if !ok {
		return nil
	}
	return res.Transitions().From(req.Status)
}

// ApplyDecision validates the decision against the current stage and returns the next
// snapshot. The input request is not modified.
func (e *Engine) ApplyDecision(ctx context.Context, req *Request, caps Capabilities, d Decision) (*Request, error) {
	res, err := e.Resolver(req.Kind)
	if err != nil {
		return nil, err
	}

	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request %d is %s", ErrAlreadyTerminal, req.ID, req.Status)
	}

	if d.Department == DepartmentEmployee {
		return e.Submit(req, d.ActorID)
	}

	stage := e.CurrentStage(req)
	if stage == StageEmployee {
		return nil, fmt.Errorf("%w: request %d has not been submitted", ErrInvalidTransition, req.ID)
	}
	if req.HasDecision(d.Department) {
		return nil, fmt.Errorf("%w: %s already decided on request %d", ErrInvalidTransition, d.Department, req.ID)
	}
	if stage.Department() != d.Department {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidTransition, stage, d.Department)
	}
	if !caps.Grants(d.Department) {
		return nil, fmt.Errorf("%w: actor %s cannot approve as %s", ErrForbidden, d.ActorID, d.Department)
	}

	if d.ID == "" {
		d.ID = e.newID()
	}
	if d.RecordedAt.IsZero() {
		d.RecordedAt = e.now()
	}

	next := req.Clone()
	commit, err := res.Apply(ctx, next, &d)
	if err != nil {
		return nil, err
	}

	trigger := TriggerReview
	if commit {
		if !d.Outcome.IsValid() {
			return nil, fmt.Errorf("%w: outcome %q", ErrInvalidDecision, d.Outcome)
		}
		next.AdminActions = append(next.AdminActions, d)
		trigger = d.Outcome.Trigger()
	}

	status := res.ResolveStatus(true, next.AdminActions)
	if !res.Transitions().Permits(req.Status, trigger, status) {
		return nil, fmt.Errorf("%w: %s cannot move request from %s to %s", ErrInvalidTransition, trigger, req.Status, status)
	}
	next.Status = status
	return next, nil
}

// Submit moves an unsubmitted request to its first department. Only the owner may submit.
func (e *Engine) Submit(req *Request, actorID string) (*Request, error) {
	res, err := e.Resolver(req.Kind)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request %d is %s", ErrAlreadyTerminal, req.ID, req.Status)
	}
	if req.Status != StatusNotYetSubmitted {
		return nil, fmt.Errorf("%w: request %d is already submitted", ErrInvalidTransition, req.ID)
	}
	if req.RequestedByID != actorID {
		return nil, fmt.Errorf("%w: only the requester may submit request %d", ErrForbidden, req.ID)
	}

	status := res.ResolveStatus(true, req.AdminActions)
	if !res.Transitions().Permits(req.Status, TriggerSubmit, status) {
		return nil, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, req.Status)
	}

	next := req.Clone()
	next.Status = status
	return next, nil
}

// CanWithdraw reports whether the actor may withdraw the request now
func (e *Engine) CanWithdraw(req *Request, actorID string) bool {
	return CanWithdraw(req, actorID, e.now())
}

// Withdraw closes the request on behalf of its owner
func (e *Engine) Withdraw(req *Request, actorID string) (*Request, error) {
	res, err := e.Resolver(req.Kind)
	if err != nil {
		return nil, err
	}
	if err := CheckWithdrawal(req, actorID, e.now()); err != nil {
		return nil, err
	}
	if !res.Transitions().Permits(req.Status, TriggerWithdraw, StatusWithdrawn) {
		return nil, fmt.Errorf("%w: cannot withdraw from %s", ErrInvalidTransition, req.Status)
	}

	next := req.Clone()
	next.Status = StatusWithdrawn
	return next, nil
}
