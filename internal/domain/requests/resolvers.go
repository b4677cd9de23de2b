package requests

import (
	"errors"
	"fmt"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// ErrInvalidRequest is returned when a new request carries an invalid payload
var ErrInvalidRequest = errors.New("invalid request")

const (
	// DefaultInstallments is used when Finance approves without choosing a count
	DefaultInstallments = 3

	// MaxInstallments is the longest repayment schedule Finance may choose
	MaxInstallments = 24
)

// Config holds the tunable business rules of the resolvers
type Config struct {
	DefaultInstallments int
	MaxInstallments     int
}

// DefaultConfig returns the standard business rules
func DefaultConfig() Config {
	return Config{
		DefaultInstallments: DefaultInstallments,
		MaxInstallments:     MaxInstallments,
	}
}

// NewResolvers builds the resolvers of all four request kinds
func NewResolvers(cfg Config, availability AssetAvailability) []workflow.Resolver {
	return []workflow.Resolver{
		NewLeaveResolver(),
		NewCashAdvanceResolver(cfg),
		NewReimbursementResolver(),
		NewCarReservationResolver(availability),
	}
}

func requireOutcome(d *workflow.Decision) error {
	if !d.Outcome.IsValid() {
		return fmt.Errorf("%w: outcome must be approved or rejected, got %q", workflow.ErrInvalidDecision, d.Outcome)
	}
	return nil
}

// requireOnlyDetails refuses payloads of other kinds mixed into the request
func requireOnlyDetails(req *workflow.Request, kind workflow.Kind) error {
	d := req.Details
	set := 0
	for _, present := range []bool{d.Leave != nil, d.CashAdvance != nil, d.Reimbursement != nil, d.CarReservation != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %s request must carry only %s details", ErrInvalidRequest, kind, kind)
	}
	return nil
}
