package workflow

import "context"

// Resolver supplies the kind-specific part of a workflow: the department sequence,
// the status vocabulary with its transitions, and the branch rules.
type Resolver interface {
	// Kind returns the request kind handled by the resolver
	Kind() Kind

	// Sequence returns the departments that decide, in order
	Sequence() []Department

	// Transitions returns the closed status vocabulary and allowed transitions
	Transitions() *TransitionTable

	// InitialStatus returns the status of a newly created request
	InitialStatus() Status

	// ResolveStatus derives the status from the submission flag and recorded decisions.
	// It must be deterministic.
	ResolveStatus(submitted bool, actions []Decision) Status

	// Prepare validates the payload of a new request and fills defaults
	Prepare(req *Request) error

	// Apply validates the decision and writes the department-owned fields into req.
	// It returns false when the decision is partial and must not be appended yet.
	Apply(ctx context.Context, req *Request, d *Decision) (bool, error)
}

// Sequential is the shared shape of every resolver: departments decide one after another,
// any rejection closes the request and approval by the last department approves it.
type Sequential struct {
	kind     Kind
	sequence []Department
	pending  map[Department]Status
	initial  Status
	table    *TransitionTable
}

// NewSequential builds the shared resolver state. pending maps each department to the status
// a request has while waiting for it.
func NewSequential(kind Kind, initial Status, table *TransitionTable, sequence []Department, pending map[Department]Status) Sequential {
	return Sequential{
		kind:     kind,
		sequence: sequence,
		pending:  pending,
		initial:  initial,
		table:    table,
	}
}

// Kind returns the request kind
func (s Sequential) Kind() Kind {
	return s.kind
}

// Sequence returns a copy of the department sequence
func (s Sequential) Sequence() []Department {
	return append([]Department(nil), s.sequence...)
}

// Transitions returns the transition table
func (s Sequential) Transitions() *TransitionTable {
	return s.table
}

// InitialStatus returns the creation status
func (s Sequential) InitialStatus() Status {
	return s.initial
}

// ResolveStatus walks the sequence and stops at the first department without a decision
func (s Sequential) ResolveStatus(submitted bool, actions []Decision) Status {
	if !submitted {
		return s.initial
	}

	byDepartment := make(map[Department]Decision, len(actions))
	for _, a := range actions {
		byDepartment[a.Department] = a
	}

	for _, dept := range s.sequence {
		d, ok := byDepartment[dept]
		if !ok {
			return s.pending[dept]
		}
		if d.Outcome == OutcomeRejected {
			return StatusRejected
		}
	}
	return StatusApproved
}
