package requests

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// ReimbursementResolver drives reimbursements. HR reviews every receipt on its own;
// the HR decision is only recorded once the last pending receipt is reviewed, after which
// Finance decides for the whole request.
type ReimbursementResolver struct {
	workflow.Sequential
	newID func() string
}

// NewReimbursementResolver creates the reimbursement resolver
func NewReimbursementResolver() *ReimbursementResolver {
	return &ReimbursementResolver{
		Sequential: newHRFinanceSequential(workflow.KindReimbursement, true),
		newID:      uuid.NewString,
	}
}

// Prepare validates the receipts and resets their review state
func (r *ReimbursementResolver) Prepare(req *workflow.Request) error {
	rb := req.Details.Reimbursement
	if rb == nil {
		return fmt.Errorf("%w: reimbursement details are required", ErrInvalidRequest)
	}
	if len(rb.Receipts) == 0 {
		return fmt.Errorf("%w: at least one receipt is required", ErrInvalidRequest)
	}

	seen := make(map[string]bool, len(rb.Receipts))
	for i := range rb.Receipts {
		receipt := &rb.Receipts[i]
		if !receipt.Amount.IsPositive() {
			return fmt.Errorf("%w: receipt %d amount must be positive", ErrInvalidRequest, i+1)
		}
		if !IsWholeCents(receipt.Amount) {
			return fmt.Errorf("%w: receipt %d amount must be in whole cents", ErrInvalidRequest, i+1)
		}
		if receipt.ID == "" {
			receipt.ID = r.newID()
		}
		if seen[receipt.ID] {
			return fmt.Errorf("%w: duplicate receipt id %s", ErrInvalidRequest, receipt.ID)
		}
		seen[receipt.ID] = true
		receipt.Status = workflow.ReceiptPending
		receipt.ApprovedAmount = nil
		receipt.Comment = ""
	}
	rb.ApprovedAmount = nil
	return requireOnlyDetails(req, workflow.KindReimbursement)
}

// Apply records receipt reviews for HR, or the request-level decision for Finance
func (r *ReimbursementResolver) Apply(ctx context.Context, req *workflow.Request, d *workflow.Decision) (bool, error) {
	rb := req.Details.Reimbursement
	if rb == nil {
		return false, fmt.Errorf("%w: request %d has no reimbursement details", workflow.ErrInvalidDecision, req.ID)
	}

	if d.Department == workflow.DepartmentFinance {
		if err := requireOutcome(d); err != nil {
			return false, err
		}
		if d.Outcome == workflow.OutcomeApproved && rb.ApprovedAmount == nil {
			return false, fmt.Errorf("%w: HR has not approved any amount", workflow.ErrInvalidTransition)
		}
		return true, nil
	}

	reviews, err := r.reviewsFor(rb, d)
	if err != nil {
		return false, err
	}
	if err := applyReviews(rb, reviews); err != nil {
		return false, err
	}
	d.ReceiptReviews = reviews

	if countPending(rb) > 0 {
		return false, nil
	}

	// every receipt is reviewed: close the HR stage
	approved := decimal.Zero
	anyApproved := false
	for _, receipt := range rb.Receipts {
		if receipt.Status == workflow.ReceiptApproved {
			anyApproved = true
			approved = approved.Add(*receipt.ApprovedAmount)
		}
	}
	if anyApproved {
		rb.ApprovedAmount = &approved
		d.ApprovedAmount = &approved
		d.Outcome = workflow.OutcomeApproved
	} else {
		d.ApprovedAmount = nil
		d.Outcome = workflow.OutcomeRejected
	}
	return true, nil
}

// reviewsFor returns the explicit receipt reviews, or expands a bare outcome to every
// pending receipt
func (r *ReimbursementResolver) reviewsFor(rb *workflow.ReimbursementDetails, d *workflow.Decision) ([]workflow.ReceiptReview, error) {
	if len(d.ReceiptReviews) > 0 {
		return append([]workflow.ReceiptReview(nil), d.ReceiptReviews...), nil
	}
	if err := requireOutcome(d); err != nil {
		return nil, err
	}
	var reviews []workflow.ReceiptReview
	for _, receipt := range rb.Receipts {
		if receipt.Status == workflow.ReceiptPending {
			reviews = append(reviews, workflow.ReceiptReview{
				ReceiptID: receipt.ID,
				Outcome:   d.Outcome,
				Comment:   d.Comment,
			})
		}
	}
	return reviews, nil
}

func applyReviews(rb *workflow.ReimbursementDetails, reviews []workflow.ReceiptReview) error {
	index := make(map[string]int, len(rb.Receipts))
	for i, receipt := range rb.Receipts {
		index[receipt.ID] = i
	}

	seen := make(map[string]bool, len(reviews))
	for i := range reviews {
		review := &reviews[i]
		pos, ok := index[review.ReceiptID]
		if !ok {
			return fmt.Errorf("%w: unknown receipt %s", workflow.ErrInvalidDecision, review.ReceiptID)
		}
		if seen[review.ReceiptID] {
			return fmt.Errorf("%w: receipt %s reviewed twice", workflow.ErrInvalidDecision, review.ReceiptID)
		}
		seen[review.ReceiptID] = true

		receipt := &rb.Receipts[pos]
		if receipt.Status != workflow.ReceiptPending {
			return fmt.Errorf("%w: receipt %s is already %s", workflow.ErrInvalidTransition, receipt.ID, receipt.Status)
		}

		switch review.Outcome {
		case workflow.OutcomeApproved:
			amount, err := approveAmount(nil, receipt.Amount, review.ApprovedAmount)
			if err != nil {
				return fmt.Errorf("receipt %s: %w", receipt.ID, err)
			}
			receipt.Status = workflow.ReceiptApproved
			receipt.ApprovedAmount = &amount
			review.ApprovedAmount = &amount
		case workflow.OutcomeRejected:
			receipt.Status = workflow.ReceiptRejected
			review.ApprovedAmount = nil
		default:
			return fmt.Errorf("%w: receipt %s outcome %q", workflow.ErrInvalidDecision, review.ReceiptID, review.Outcome)
		}
		receipt.Comment = review.Comment
	}
	return nil
}

func countPending(rb *workflow.ReimbursementDetails) int {
	n := 0
	for _, receipt := range rb.Receipts {
		if receipt.Status == workflow.ReceiptPending {
			n++
		}
	}
	return n
}

var _ workflow.Resolver = (*ReimbursementResolver)(nil)
