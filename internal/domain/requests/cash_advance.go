package requests

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// CashAdvanceResolver drives cash advances: HR fixes the approved amount, then Finance
// fixes the repayment schedule.
type CashAdvanceResolver struct {
	workflow.Sequential
	cfg Config
}

// NewCashAdvanceResolver creates the cash advance resolver
func NewCashAdvanceResolver(cfg Config) *CashAdvanceResolver {
	return &CashAdvanceResolver{
		Sequential: newHRFinanceSequential(workflow.KindCashAdvance, false),
		cfg:        cfg,
	}
}

// Prepare validates the requested amount
func (r *CashAdvanceResolver) Prepare(req *workflow.Request) error {
	ca := req.Details.CashAdvance
	if ca == nil {
		return fmt.Errorf("%w: cash advance details are required", ErrInvalidRequest)
	}
	if !ca.RequestAmount.IsPositive() {
		return fmt.Errorf("%w: request_amount must be positive", ErrInvalidRequest)
	}
	if !IsWholeCents(ca.RequestAmount) {
		return fmt.Errorf("%w: request_amount must be in whole cents", ErrInvalidRequest)
	}
	ca.ApprovedAmount = nil
	ca.NumberOfInstallments = 0
	ca.Installments = nil
	return requireOnlyDetails(req, workflow.KindCashAdvance)
}

// Apply records HR's approved amount or Finance's installment schedule
func (r *CashAdvanceResolver) Apply(ctx context.Context, req *workflow.Request, d *workflow.Decision) (bool, error) {
	if err := requireOutcome(d); err != nil {
		return false, err
	}
	ca := req.Details.CashAdvance
	if ca == nil {
		return false, fmt.Errorf("%w: request %d has no cash advance details", workflow.ErrInvalidDecision, req.ID)
	}
	if d.Outcome == workflow.OutcomeRejected {
		return true, nil
	}

	switch d.Department {
	case workflow.DepartmentHR:
		amount, err := approveAmount(ca.ApprovedAmount, ca.RequestAmount, d.ApprovedAmount)
		if err != nil {
			return false, err
		}
		ca.ApprovedAmount = &amount
		d.ApprovedAmount = &amount

	case workflow.DepartmentFinance:
		if ca.ApprovedAmount == nil {
			return false, fmt.Errorf("%w: HR has not approved an amount", workflow.ErrInvalidTransition)
		}
		n := d.NumberOfInstallments
		if n == 0 {
			n = r.cfg.DefaultInstallments
		}
		if n < 1 || n > r.cfg.MaxInstallments {
			return false, fmt.Errorf("%w: number of installments must be between 1 and %d, got %d",
				workflow.ErrInvalidDecision, r.cfg.MaxInstallments, n)
		}
		schedule, err := BuildSchedule(*ca.ApprovedAmount, n, d.RecordedAt)
		if err != nil {
			return false, err
		}
		ca.NumberOfInstallments = n
		ca.Installments = schedule
		d.NumberOfInstallments = n
	}
	return true, nil
}

// approveAmount resolves the amount HR approves: the requested amount unless HR reduces it.
// It may only be set once.
func approveAmount(current *decimal.Decimal, requested decimal.Decimal, proposed *decimal.Decimal) (decimal.Decimal, error) {
	if current != nil {
		return decimal.Zero, fmt.Errorf("%w: approved amount is already set", workflow.ErrInvalidDecision)
	}
	if proposed == nil {
		return requested, nil
	}
	if !proposed.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: approved amount must be positive", workflow.ErrInvalidDecision)
	}
	if !IsWholeCents(*proposed) {
		return decimal.Zero, fmt.Errorf("%w: approved amount must be in whole cents", workflow.ErrInvalidDecision)
	}
	if proposed.GreaterThan(requested) {
		return decimal.Zero, fmt.Errorf("%w: approved amount %s exceeds requested %s",
			workflow.ErrInvalidDecision, proposed.StringFixed(2), requested.StringFixed(2))
	}
	return *proposed, nil
}

// newHRFinanceSequential builds the hr -> finance shape shared by cash advances and
// reimbursements. Reimbursements additionally stay in pending_hr on partial receipt reviews.
func newHRFinanceSequential(kind workflow.Kind, partialReviews bool) workflow.Sequential {
	table := workflow.NewTransitionTable(
		workflow.StatusPendingHR,
		workflow.StatusPendingFinance,
		workflow.StatusApproved,
		workflow.StatusRejected,
		workflow.StatusWithdrawn,
	)
	hr := table.Configure(workflow.StatusPendingHR).
		Permit(workflow.TriggerApprove, workflow.StatusPendingFinance).
		Permit(workflow.TriggerReject, workflow.StatusRejected).
		Permit(workflow.TriggerWithdraw, workflow.StatusWithdrawn)
	if partialReviews {
		hr.Permit(workflow.TriggerReview, workflow.StatusPendingHR)
	}
	table.Configure(workflow.StatusPendingFinance).
		Permit(workflow.TriggerApprove, workflow.StatusApproved).
		Permit(workflow.TriggerReject, workflow.StatusRejected).
		Permit(workflow.TriggerWithdraw, workflow.StatusWithdrawn)

	return workflow.NewSequential(kind, workflow.StatusPendingHR, table,
		[]workflow.Department{workflow.DepartmentHR, workflow.DepartmentFinance},
		map[workflow.Department]workflow.Status{
			workflow.DepartmentHR:      workflow.StatusPendingHR,
			workflow.DepartmentFinance: workflow.StatusPendingFinance,
		})
}

var _ workflow.Resolver = (*CashAdvanceResolver)(nil)
