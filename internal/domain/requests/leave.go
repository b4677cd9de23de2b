package requests

import (
	"context"
	"fmt"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// LeaveResolver drives leave requests: the employee submits, then the project manager
// and HR decide in that order. The manager stage is mandatory for every employee.
type LeaveResolver struct {
	workflow.Sequential
}

// NewLeaveResolver creates the leave request resolver
func NewLeaveResolver() *LeaveResolver {
	table := workflow.NewTransitionTable(
		workflow.StatusNotYetSubmitted,
		workflow.StatusPendingManager,
		workflow.StatusPendingHR,
		workflow.StatusApproved,
		workflow.StatusRejected,
		workflow.StatusWithdrawn,
	)
	table.Configure(workflow.StatusNotYetSubmitted).
		Permit(workflow.TriggerSubmit, workflow.StatusPendingManager).
		Permit(workflow.TriggerWithdraw, workflow.StatusWithdrawn)
	table.Configure(workflow.StatusPendingManager).
		Permit(workflow.TriggerApprove, workflow.StatusPendingHR).
		Permit(workflow.TriggerReject, workflow.StatusRejected).
		Permit(workflow.TriggerWithdraw, workflow.StatusWithdrawn)
	table.Configure(workflow.StatusPendingHR).
		Permit(workflow.TriggerApprove, workflow.StatusApproved).
		Permit(workflow.TriggerReject, workflow.StatusRejected).
		Permit(workflow.TriggerWithdraw, workflow.StatusWithdrawn)

	return &LeaveResolver{
		Sequential: workflow.NewSequential(workflow.KindLeave, workflow.StatusNotYetSubmitted, table,
			[]workflow.Department{workflow.DepartmentManager, workflow.DepartmentHR},
			map[workflow.Department]workflow.Status{
				workflow.DepartmentManager: workflow.StatusPendingManager,
				workflow.DepartmentHR:      workflow.StatusPendingHR,
			}),
	}
}

// Prepare validates the leave dates
func (r *LeaveResolver) Prepare(req *workflow.Request) error {
	leave := req.Details.Leave
	if leave == nil {
		return fmt.Errorf("%w: leave details are required", ErrInvalidRequest)
	}
	if leave.LeaveFrom.IsZero() || leave.LeaveTo.IsZero() {
		return fmt.Errorf("%w: leave_from and leave_to are required", ErrInvalidRequest)
	}
	if leave.LeaveTo.Before(leave.LeaveFrom) {
		return fmt.Errorf("%w: leave_to is before leave_from", ErrInvalidRequest)
	}
	return requireOnlyDetails(req, workflow.KindLeave)
}

// Apply accepts plain approve/reject decisions; leave has no department-owned fields
func (r *LeaveResolver) Apply(ctx context.Context, req *workflow.Request, d *workflow.Decision) (bool, error) {
	if err := requireOutcome(d); err != nil {
		return false, err
	}
	return true, nil
}

var _ workflow.Resolver = (*LeaveResolver)(nil)
