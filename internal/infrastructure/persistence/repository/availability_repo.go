package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
	"github.com/garyjia/employee-requests/internal/infrastructure/persistence/sqlite"
)

// AvailabilityRepository checks company car bookings against approved reservations
type AvailabilityRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *sqlite.DB, logger *zap.Logger) *AvailabilityRepository {
	return &AvailabilityRepository{
		db:     db,
		logger: logger,
	}
}

// IsAvailable returns false if another approved reservation of the asset overlaps [from, to).
// Run inside the write transaction, the answer holds until commit.
func (r *AvailabilityRepository) IsAvailable(ctx context.Context, assetID string, from, to time.Time, excludingRequestID int64) (bool, error) {
	var overlapping int
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM requests
		WHERE kind = ?
			AND status = ?
			AND asset_id = ?
			AND id != ?
			AND period_from_unix < ?
			AND period_to_unix > ?
	`,
		string(workflow.KindCarReservation),
		string(workflow.StatusApproved),
		assetID,
		excludingRequestID,
		to.Unix(),
		from.Unix(),
	).Scan(&overlapping)
	if err != nil {
		r.logger.Error("Failed to check asset availability", zap.String("asset_id", assetID), zap.Error(err))
		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	if overlapping > 0 {
		r.logger.Info("Asset already booked",
			zap.String("asset_id", assetID),
			zap.Int("overlapping", overlapping),
			zap.Int64("request_id", excludingRequestID))
	}
	return overlapping == 0, nil
}

var _ port.AssetAvailability = (*AvailabilityRepository)(nil)
