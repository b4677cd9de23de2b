package service

import (
	"context"
	"fmt"

	"github.com/garyjia/employee-requests/internal/application/dispatcher"
	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/domain/event"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ActionSummary tells a client what the actor may do with a request right now
type ActionSummary struct {
	RequestID   int64                 `json:"request_id"`
	Status      workflow.Status       `json:"status"`
	Stage       workflow.Stage        `json:"stage"`
	CanAct      bool                  `json:"can_act"`
	CanSubmit   bool                  `json:"can_submit"`
	CanWithdraw bool                  `json:"can_withdraw"`
	Transitions []workflow.Transition `json:"transitions"`
}

// RequestService runs every workflow operation as one read/validate/write transaction
type RequestService interface {
	CreateRequest(ctx context.Context, actorID string, req *workflow.Request) (*workflow.Request, error)
	GetRequest(ctx context.Context, id int64) (*workflow.Request, error)
	ListRequests(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error)
	DescribeActions(ctx context.Context, id int64, actorID string) (*ActionSummary, error)
	Submit(ctx context.Context, id int64, actorID string) (*workflow.Request, error)
	Decide(ctx context.Context, id int64, actorID string, d workflow.Decision) (*workflow.Request, error)
	Withdraw(ctx context.Context, id int64, actorID string) (*workflow.Request, error)
}

type requestServiceImpl struct {
	repo       port.RequestRepository
	perms      port.PermissionResolver
	engine     *workflow.Engine
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewRequestService creates a new RequestService. dispatcher may be nil.
func NewRequestService(
	repo port.RequestRepository,
	perms port.PermissionResolver,
	engine *workflow.Engine,
	txManager port.TransactionManager,
	dispatcher dispatcher.Dispatcher,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		repo:       repo,
		perms:      perms,
		engine:     engine,
		txManager:  txManager,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateRequest validates the payload and stores the request in its initial status
func (s *requestServiceImpl) CreateRequest(ctx context.Context, actorID string, req *workflow.Request) (*workflow.Request, error) {
	draft := req.Clone()
	draft.RequestedByID = actorID

	created, err := s.engine.NewRequest(draft)
	if err != nil {
		s.logger.Error("Rejected new request", "error", err, "kind", req.Kind, "actor_id", actorID)
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, created); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "kind", req.Kind, "actor_id", actorID)
		return nil, err
	}

	s.logger.Info("Request created", "id", created.ID, "kind", created.Kind, "status", created.Status)
	s.publish(ctx, event.NewEvent(event.TypeRequestCreated, created.ID, string(created.Kind), actorID,
		map[string]interface{}{"status": string(created.Status)}))
	return created, nil
}

// GetRequest retrieves a request with its decisions
func (s *requestServiceImpl) GetRequest(ctx context.Context, id int64) (*workflow.Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "id", id)
		return nil, err
	}
	return req, nil
}

// ListRequests retrieves a filtered page of requests
func (s *requestServiceImpl) ListRequests(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error) {
	reqs, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "kind", filter.Kind, "status", filter.Status)
		return nil, err
	}
	return reqs, nil
}

// DescribeActions answers what the actor may do with the request
func (s *requestServiceImpl) DescribeActions(ctx context.Context, id int64, actorID string) (*ActionSummary, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	caps, err := s.perms.CapabilitiesFor(ctx, actorID, req.Kind.ModuleSlug())
	if err != nil {
		return nil, fmt.Errorf("resolve capabilities: %w", err)
	}

	stage := s.engine.CurrentStage(req)
	return &ActionSummary{
		RequestID:   req.ID,
		Status:      req.Status,
		Stage:       stage,
		CanAct:      s.engine.CanAct(req, caps, stage),
		CanSubmit:   stage == workflow.StageEmployee && req.RequestedByID == actorID,
		CanWithdraw: s.engine.CanWithdraw(req, actorID),
		Transitions: s.engine.LegalTransitions(req),
	}, nil
}

// Submit hands an unsubmitted request to its first department
func (s *requestServiceImpl) Submit(ctx context.Context, id int64, actorID string) (*workflow.Request, error) {
	var next *workflow.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.repo.Get(txCtx, id)
		if err != nil {
			return err
		}
		next, err = s.engine.Submit(req, actorID)
		if err != nil {
			return err
		}
		return s.saveDerived(txCtx, req, next)
	})
	if err != nil {
		s.logger.Error("Failed to submit request", "error", err, "id", id, "actor_id", actorID)
		return nil, err
	}

	s.logger.Info("Request submitted", "id", id, "status", next.Status)
	s.publish(ctx, event.NewEvent(event.TypeRequestSubmitted, id, string(next.Kind), actorID,
		map[string]interface{}{"status": string(next.Status)}))
	return next, nil
}

// Decide records a department decision
func (s *requestServiceImpl) Decide(ctx context.Context, id int64, actorID string, d workflow.Decision) (*workflow.Request, error) {
	if d.Department == workflow.DepartmentEmployee {
		return s.Submit(ctx, id, actorID)
	}
	d.ActorID = actorID

	var before, next *workflow.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.repo.Get(txCtx, id)
		if err != nil {
			return err
		}
		caps, err := s.perms.CapabilitiesFor(txCtx, actorID, req.Kind.ModuleSlug())
		if err != nil {
			return fmt.Errorf("resolve capabilities: %w", err)
		}

		next, err = s.engine.ApplyDecision(txCtx, req, caps, d)
		if err != nil {
			return err
		}
		if len(next.AdminActions) > len(req.AdminActions) {
			recorded := next.AdminActions[len(next.AdminActions)-1]
			if err := s.repo.AppendDecision(txCtx, id, recorded, len(req.AdminActions)); err != nil {
				return err
			}
		}
		before = req
		return s.saveDerived(txCtx, req, next)
	})
	if err != nil {
		s.logger.Error("Failed to record decision", "error", err, "id", id, "actor_id", actorID, "department", d.Department)
		return nil, err
	}

	s.logger.Info("Decision recorded", "id", id, "department", d.Department, "status", next.Status)
	s.publish(ctx, decisionEvents(before, next, actorID)...)
	return next, nil
}

// Withdraw closes the request on behalf of its owner
func (s *requestServiceImpl) Withdraw(ctx context.Context, id int64, actorID string) (*workflow.Request, error) {
	var next *workflow.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.repo.Get(txCtx, id)
		if err != nil {
			return err
		}
		next, err = s.engine.Withdraw(req, actorID)
		if err != nil {
			return err
		}
		return s.saveDerived(txCtx, req, next)
	})
	if err != nil {
		s.logger.Error("Failed to withdraw request", "error", err, "id", id, "actor_id", actorID)
		return nil, err
	}

	s.logger.Info("Request withdrawn", "id", id)
	withdrawn := event.NewEvent(event.TypeRequestWithdrawn, id, string(next.Kind), actorID, nil)
	closed := event.NewEventWithCorrelation(event.TypeRequestClosed, id, string(next.Kind), actorID,
		map[string]interface{}{"status": string(next.Status)}, withdrawn.CorrelationID)
	s.publish(ctx, withdrawn, closed)
	return next, nil
}

func (s *requestServiceImpl) saveDerived(ctx context.Context, req, next *workflow.Request) error {
	version, err := s.repo.SetDerivedFields(ctx, req.ID, port.DerivedFields{
		Status:          next.Status,
		Details:         next.Details,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		return err
	}
	next.Version = version
	return nil
}

// publish hands committed events to the dispatcher. Handlers outlive the caller's request.
func (s *requestServiceImpl) publish(ctx context.Context, evts ...*event.Event) {
	if s.dispatcher == nil || len(evts) == 0 {
		return
	}
	s.dispatcher.DispatchAllAsync(context.WithoutCancel(ctx), evts)
}

func decisionEvents(before, next *workflow.Request, actorID string) []*event.Event {
	kind := string(next.Kind)

	if len(next.AdminActions) == len(before.AdminActions) {
		pending := 0
		if rb := next.Details.Reimbursement; rb != nil {
			for _, r := range rb.Receipts {
				if r.Status == workflow.ReceiptPending {
					pending++
				}
			}
		}
		return []*event.Event{event.NewEvent(event.TypeReceiptReviewed, next.ID, kind, actorID,
			map[string]interface{}{"status": string(next.Status), "pending_receipts": pending})}
	}

	d := next.AdminActions[len(next.AdminActions)-1]
	recorded := event.NewEvent(event.TypeDecisionRecorded, next.ID, kind, actorID, map[string]interface{}{
		"department": string(d.Department),
		"outcome":    string(d.Outcome),
		"status":     string(next.Status),
		"comment":    d.Comment,
	})
	evts := []*event.Event{recorded}
	if next.Status.IsTerminal() {
		evts = append(evts, event.NewEventWithCorrelation(event.TypeRequestClosed, next.ID, kind, actorID,
			map[string]interface{}{"status": string(next.Status)}, recorded.CorrelationID))
	}
	return evts
}
