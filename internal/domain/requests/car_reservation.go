package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

// AssetAvailability answers whether a company asset is free for a period
type AssetAvailability interface {
	IsAvailable(ctx context.Context, assetID string, from, to time.Time, excludingRequestID int64) (bool, error)
}

// CarReservationResolver drives company car reservations: a single HR decision that must
// claim a free car.
type CarReservationResolver struct {
	workflow.Sequential
	availability AssetAvailability
}

// NewCarReservationResolver creates the car reservation resolver
func NewCarReservationResolver(availability AssetAvailability) *CarReservationResolver {
	table := workflow.NewTransitionTable(
		workflow.StatusPendingHR,
		workflow.StatusApproved,
		workflow.StatusRejected,
		workflow.StatusWithdrawn,
	)
	table.Configure(workflow.StatusPendingHR).
		Permit(workflow.TriggerApprove, workflow.StatusApproved).
		Permit(workflow.TriggerReject, workflow.StatusRejected).
		Permit(workflow.TriggerWithdraw, workflow.StatusWithdrawn)

	return &CarReservationResolver{
		Sequential: workflow.NewSequential(workflow.KindCarReservation, workflow.StatusPendingHR, table,
			[]workflow.Department{workflow.DepartmentHR},
			map[workflow.Department]workflow.Status{
				workflow.DepartmentHR: workflow.StatusPendingHR,
			}),
		availability: availability,
	}
}

// Prepare validates the reservation period
func (r *CarReservationResolver) Prepare(req *workflow.Request) error {
	car := req.Details.CarReservation
	if car == nil {
		return fmt.Errorf("%w: car reservation details are required", ErrInvalidRequest)
	}
	if car.From.IsZero() || car.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidRequest)
	}
	if !car.To.After(car.From) {
		return fmt.Errorf("%w: reservation must end after it starts", ErrInvalidRequest)
	}
	return requireOnlyDetails(req, workflow.KindCarReservation)
}

// Apply re-checks that the chosen car is still free before HR's approval is accepted
func (r *CarReservationResolver) Apply(ctx context.Context, req *workflow.Request, d *workflow.Decision) (bool, error) {
	if err := requireOutcome(d); err != nil {
		return false, err
	}
	car := req.Details.CarReservation
	if car == nil {
		return false, fmt.Errorf("%w: request %d has no car reservation details", workflow.ErrInvalidDecision, req.ID)
	}
	if d.Outcome == workflow.OutcomeRejected {
		return true, nil
	}

	carID := d.CompanyCarID
	if carID == "" {
		carID = car.CompanyCarID
	}
	if carID == "" {
		return false, fmt.Errorf("%w: a company car must be chosen", workflow.ErrInvalidDecision)
	}
	if r.availability == nil {
		return false, fmt.Errorf("no availability service configured for car %s", carID)
	}

	ok, err := r.availability.IsAvailable(ctx, carID, car.From, car.To, req.ID)
	if err != nil {
		return false, fmt.Errorf("check availability of car %s: %w", carID, err)
	}
	if !ok {
		return false, fmt.Errorf("%w: car %s is booked between %s and %s, pick a different car",
			workflow.ErrResourceUnavailable, carID, car.From.Format(time.RFC3339), car.To.Format(time.RFC3339))
	}

	car.CompanyCarID = carID
	d.CompanyCarID = carID
	return true, nil
}

var _ workflow.Resolver = (*CarReservationResolver)(nil)
