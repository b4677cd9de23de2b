package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/employee-requests/internal/application/dispatcher"
	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/domain/event"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// NotificationService tells requesters and approvers about request changes
type NotificationService interface {
	// Register subscribes the service to the request events it reacts to
	Register(d dispatcher.Dispatcher)

	// HandleEvent sends the notifications for a single event
	HandleEvent(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	repo      port.RequestRepository
	directory port.ApproverDirectory
	notifier  port.Notifier
	engine    *workflow.Engine
	logger    Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	repo port.RequestRepository,
	directory port.ApproverDirectory,
	notifier port.Notifier,
	engine *workflow.Engine,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		engine:    engine,
		logger:    logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeMany([]event.Type{
		event.TypeRequestCreated,
		event.TypeRequestSubmitted,
		event.TypeDecisionRecorded,
		event.TypeReceiptReviewed,
		event.TypeRequestClosed,
	}, "notifier", s.HandleEvent)
}

func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	req, err := s.repo.Get(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("get request: %w", err)
	}

	var notifications []port.Notification
	switch evt.Type {
	case event.TypeRequestCreated, event.TypeRequestSubmitted:
		notifications, err = s.approverNotifications(ctx, req)

	case event.TypeDecisionRecorded:
		notifications = append(notifications, port.Notification{
			RecipientID: req.RequestedByID,
			Title:       requestTitle(req),
			Body: fmt.Sprintf("%s %s your request.%s",
				departmentLabel(workflow.Department(evt.GetPayloadString("department"))),
				evt.GetPayloadString("outcome"),
				commentSuffix(evt.GetPayloadString("comment"))),
		})
		if !req.Status.IsTerminal() {
			var next []port.Notification
			next, err = s.approverNotifications(ctx, req)
			notifications = append(notifications, next...)
		}

	case event.TypeReceiptReviewed:
		notifications = append(notifications, port.Notification{
			RecipientID: req.RequestedByID,
			Title:       requestTitle(req),
			Body:        fmt.Sprintf("HR reviewed receipts, %d still pending.", evt.GetPayloadInt("pending_receipts")),
		})

	case event.TypeRequestClosed:
		notifications = append(notifications, port.Notification{
			RecipientID: req.RequestedByID,
			Title:       requestTitle(req),
			Body:        fmt.Sprintf("Your request is now %s.", strings.ReplaceAll(string(req.Status), "_", " ")),
		})
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, n := range notifications {
		if n.RecipientID == evt.ActorID {
			continue
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Error("Failed to send notification",
				"error", err,
				"request_id", req.ID,
				"recipient_id", n.RecipientID,
				"event_type", evt.Type,
			)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("Notification sent", "request_id", req.ID, "recipient_id", n.RecipientID, "event_type", evt.Type)
	}
	return errors.Join(errs...)
}

// approverNotifications addresses every actor able to decide at the current stage
func (s *notificationServiceImpl) approverNotifications(ctx context.Context, req *workflow.Request) ([]port.Notification, error) {
	stage := s.engine.CurrentStage(req)
	if stage == workflow.StageTerminal || stage == workflow.StageEmployee {
		return nil, nil
	}
	dept := stage.Department()

	actors, err := s.directory.ActorsWithCapability(ctx, req.Kind.ModuleSlug(), dept.Capability())
	if err != nil {
		return nil, fmt.Errorf("list approvers: %w", err)
	}

	notifications := make([]port.Notification, 0, len(actors))
	for _, actorID := range actors {
		notifications = append(notifications, port.Notification{
			RecipientID: actorID,
			Title:       requestTitle(req),
			Body:        fmt.Sprintf("Awaiting your decision as %s.", departmentLabel(dept)),
		})
	}
	return notifications, nil
}

func requestTitle(req *workflow.Request) string {
	return fmt.Sprintf("%s request #%d", kindLabel(req.Kind), req.ID)
}

func kindLabel(k workflow.Kind) string {
	switch k {
	case workflow.KindLeave:
		return "Leave"
	case workflow.KindCashAdvance:
		return "Cash advance"
	case workflow.KindReimbursement:
		return "Reimbursement"
	case workflow.KindCarReservation:
		return "Car reservation"
	}
	return string(k)
}

func departmentLabel(d workflow.Department) string {
	switch d {
	case workflow.DepartmentManager:
		return "Project manager"
	case workflow.DepartmentHR:
		return "HR"
	case workflow.DepartmentFinance:
		return "Finance"
	}
	return string(d)
}

func commentSuffix(comment string) string {
	if comment == "" {
		return ""
	}
	return " Comment: " + comment
}
