package workflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is a snapshot of an employee service request
type Request struct {
	ID            int64      `json:"id"`
	Kind          Kind       `json:"kind"`
	RequestedByID string     `json:"requested_by_id"`
	Status        Status     `json:"status"`
	Purpose       string     `json:"purpose"`
	Details       Details    `json:"details"`
	AdminActions  []Decision `json:"admin_actions"`
	Attachments   []string   `json:"attachments"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Details holds the kind-specific payload. Exactly one field is set.
type Details struct {
	Leave          *LeaveDetails          `json:"leave,omitempty"`
	CashAdvance    *CashAdvanceDetails    `json:"cash_advance,omitempty"`
	Reimbursement  *ReimbursementDetails  `json:"reimbursement,omitempty"`
	CarReservation *CarReservationDetails `json:"car_reservation,omitempty"`
}

// LeaveDetails is the payload of a leave request
type LeaveDetails struct {
	LeaveType string    `json:"leave_type"`
	LeaveFrom time.Time `json:"leave_from"`
	LeaveTo   time.Time `json:"leave_to"`
}

// CashAdvanceDetails is the payload of a cash advance request.
// ApprovedAmount is owned by HR, NumberOfInstallments and Installments by Finance.
type CashAdvanceDetails struct {
	RequestAmount        decimal.Decimal  `json:"request_amount"`
	ApprovedAmount       *decimal.Decimal `json:"approved_amount,omitempty"`
	NumberOfInstallments int              `json:"number_of_installments,omitempty"`
	Installments         []Installment    `json:"installments,omitempty"`
}

// Installment is one monthly repayment of a cash advance
type Installment struct {
	Sequence int             `json:"sequence"`
	DueDate  time.Time       `json:"due_date"`
	Amount   decimal.Decimal `json:"amount"`
	IsPaid   bool            `json:"is_paid"`
}

// ReceiptStatus is the HR review state of a single receipt
type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptApproved ReceiptStatus = "approved"
	ReceiptRejected ReceiptStatus = "rejected"
)

// Receipt is one line of a reimbursement request
type Receipt struct {
	ID             string           `json:"id"`
	Description    string           `json:"description"`
	Amount         decimal.Decimal  `json:"amount"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
	Status         ReceiptStatus    `json:"status"`
	Comment        string           `json:"comment,omitempty"`
}

// ReimbursementDetails is the payload of a reimbursement request
type ReimbursementDetails struct {
	Receipts       []Receipt        `json:"receipts"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
}

// RequestedAmount returns the sum of all receipt amounts
func (r *ReimbursementDetails) RequestedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, receipt := range r.Receipts {
		total = total.Add(receipt.Amount)
	}
	return total
}

// CarReservationDetails is the payload of a company car reservation
type CarReservationDetails struct {
	CompanyCarID string    `json:"company_car_id,omitempty"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Destination  string    `json:"destination,omitempty"`
}

// Decision is the immutable record of one department's outcome
type Decision struct {
	ID         string     `json:"id"`
	Department Department `json:"department"`
	Outcome    Outcome    `json:"outcome"`
	Comment    string     `json:"comment,omitempty"`
	ActorID    string     `json:"actor_id"`
	RecordedAt time.Time  `json:"recorded_at"`

	ApprovedAmount       *decimal.Decimal `json:"approved_amount,omitempty"`
	NumberOfInstallments int              `json:"number_of_installments,omitempty"`
	ReceiptReviews       []ReceiptReview  `json:"receipt_reviews,omitempty"`
	CompanyCarID         string           `json:"company_car_id,omitempty"`
}

// ReceiptReview is HR's outcome for a single reimbursement receipt
type ReceiptReview struct {
	ReceiptID      string           `json:"receipt_id"`
	Outcome        Outcome          `json:"outcome"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
	Comment        string           `json:"comment,omitempty"`
}

// DecisionBy returns the decision recorded by the department, if any
func (r *Request) DecisionBy(d Department) (Decision, bool) {
	for _, action := range r.AdminActions {
		if action.Department == d {
			return action, true
		}
	}
	return Decision{}, false
}

// HasDecision returns true if the department already acted on the request
func (r *Request) HasDecision(d Department) bool {
	_, ok := r.DecisionBy(d)
	return ok
}

// Clone returns a deep copy of the request
func (r *Request) Clone() *Request {
	c := *r
	if r.AdminActions != nil {
		c.AdminActions = make([]Decision, len(r.AdminActions))
		for i, d := range r.AdminActions {
			c.AdminActions[i] = d.Clone()
		}
	}
	c.Attachments = append([]string(nil), r.Attachments...)

	if r.Details.Leave != nil {
		leave := *r.Details.Leave
		c.Details.Leave = &leave
	}
	if r.Details.CashAdvance != nil {
		ca := *r.Details.CashAdvance
		ca.ApprovedAmount = cloneAmount(ca.ApprovedAmount)
		ca.Installments = append([]Installment(nil), ca.Installments...)
		c.Details.CashAdvance = &ca
	}
	if r.Details.Reimbursement != nil {
		rb := *r.Details.Reimbursement
		rb.ApprovedAmount = cloneAmount(rb.ApprovedAmount)
		rb.Receipts = make([]Receipt, len(r.Details.Reimbursement.Receipts))
		for i, receipt := range r.Details.Reimbursement.Receipts {
			receipt.ApprovedAmount = cloneAmount(receipt.ApprovedAmount)
			rb.Receipts[i] = receipt
		}
		c.Details.Reimbursement = &rb
	}
	if r.Details.CarReservation != nil {
		car := *r.Details.CarReservation
		c.Details.CarReservation = &car
	}
	return &c
}

// Clone returns a copy of the decision that shares no amounts or reviews with d
func (d Decision) Clone() Decision {
	d.ApprovedAmount = cloneAmount(d.ApprovedAmount)
	if d.ReceiptReviews != nil {
		reviews := make([]ReceiptReview, len(d.ReceiptReviews))
		for i, rv := range d.ReceiptReviews {
			rv.ApprovedAmount = cloneAmount(rv.ApprovedAmount)
			reviews[i] = rv
		}
		d.ReceiptReviews = reviews
	}
	return d
}

func cloneAmount(a *decimal.Decimal) *decimal.Decimal {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}
