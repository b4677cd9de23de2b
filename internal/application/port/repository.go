package port

import (
	"context"

	"github.com/garyjia/employee-requests/internal/domain/requests"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// RequestFilter narrows a request listing. Zero values mean no filter.
type RequestFilter struct {
	Kind          workflow.Kind
	Status        workflow.Status
	RequestedByID string
	Limit         int
	Offset        int
}

// DerivedFields are the engine-owned columns written after a transition
type DerivedFields struct {
	Status  workflow.Status
	Details workflow.Details

	// ExpectedVersion is the version read before the transition
	ExpectedVersion int64
}

// RequestRepository defines persistence operations for requests and their decisions
type RequestRepository interface {
	// Create stores a new request and sets its ID, version and timestamps
	Create(ctx context.Context, req *workflow.Request) error

	// Get returns the request with its decisions, or workflow.ErrRequestNotFound
	Get(ctx context.Context, id int64) (*workflow.Request, error)

	// List returns requests without their decisions, newest first
	List(ctx context.Context, filter RequestFilter) ([]*workflow.Request, error)

	// ListActions returns the decisions of a request in recording order
	ListActions(ctx context.Context, id int64) ([]workflow.Decision, error)

	// AppendDecision appends d if the request still has expectedActionCount decisions.
	// Otherwise it returns workflow.ErrConflictingDecision.
	AppendDecision(ctx context.Context, id int64, d workflow.Decision, expectedActionCount int) error

	// SetDerivedFields writes status and details if the version is unchanged and returns
	// the new version. A stale version yields workflow.ErrConflictingDecision.
	SetDerivedFields(ctx context.Context, id int64, fields DerivedFields) (int64, error)
}

// PermissionResolver resolves the capabilities an actor holds in a module
type PermissionResolver interface {
	CapabilitiesFor(ctx context.Context, actorID, moduleSlug string) (workflow.Capabilities, error)
}

// ApproverDirectory lists the actors holding a capability, used to notify the next approvers
type ApproverDirectory interface {
	ActorsWithCapability(ctx context.Context, moduleSlug, capability string) ([]string, error)
}

// AssetAvailability answers whether a company asset is free for a period
type AssetAvailability = requests.AssetAvailability

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
