package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated   Type = "request.created"
	TypeRequestSubmitted Type = "request.submitted"
	TypeDecisionRecorded Type = "request.decision_recorded"
	TypeReceiptReviewed  Type = "request.receipt_reviewed"
	TypeRequestWithdrawn Type = "request.withdrawn"
	TypeRequestClosed    Type = "request.closed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeRequestSubmitted,
		TypeDecisionRecorded,
		TypeReceiptReviewed,
		TypeRequestWithdrawn,
		TypeRequestClosed:
		return true
	default:
		return false
	}
}
