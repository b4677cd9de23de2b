package workflow

import "errors"

var (
	// ErrForbidden is returned when the actor lacks the capability for the current stage
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when no action is expected from the department at this stage
	ErrInvalidTransition = errors.New("no action expected at this stage")

	// ErrConflictingDecision is returned when the request changed between read and commit
	ErrConflictingDecision = errors.New("conflicting decision")

	// ErrResourceUnavailable is returned when a reserved asset was booked by another approval
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrAlreadyTerminal is returned when a closed request receives a further action
	ErrAlreadyTerminal = errors.New("request is already closed")

	// ErrInvalidDecision is returned when department-owned input fails validation
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrRequestNotFound is returned when no request exists for an ID
	ErrRequestNotFound = errors.New("request not found")

	// ErrUnknownKind is returned when no resolver is registered for a request kind
	ErrUnknownKind = errors.New("unknown request kind")
)
