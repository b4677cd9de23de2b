package workflow

// Trigger is the kind of action that moves a request between statuses
type Trigger string

const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerReview   Trigger = "REVIEW"
	TriggerWithdraw Trigger = "WITHDRAW"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// Outcome is the result a department records
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// IsValid returns true for a known outcome
func (o Outcome) IsValid() bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

// Trigger maps the outcome to the transition it fires
func (o Outcome) Trigger() Trigger {
	if o == OutcomeRejected {
		return TriggerReject
	}
	return TriggerApprove
}
