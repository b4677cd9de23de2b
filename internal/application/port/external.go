package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// Notification is a short text message for one actor
type Notification struct {
	RecipientID string
	Title       string
	Body        string
}

// Notifier delivers notifications to employees and approvers
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ErrNoSchedule is returned when a request has no installment schedule to export
var ErrNoSchedule = errors.New("request has no installment schedule")

// InstallmentExporter renders the repayment schedule of a cash advance
type InstallmentExporter interface {
	ExportInstallments(w io.Writer, req *workflow.Request) error
}
