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

// PermissionRepository resolves actor capabilities from the actor_capabilities table.
// It implements port.PermissionResolver and port.ApproverDirectory.
type PermissionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *sqlite.DB, logger *zap.Logger) *PermissionRepository {
	return &PermissionRepository{
		db:     db,
		logger: logger,
	}
}

// CapabilitiesFor returns the capability flags of the actor in the module
func (r *PermissionRepository) CapabilitiesFor(ctx context.Context, actorID, moduleSlug string) (workflow.Capabilities, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT capability FROM actor_capabilities WHERE actor_id = ? AND module_slug = ?`,
		actorID, moduleSlug,
	)
	if err != nil {
		r.logger.Error("Failed to load capabilities",
			zap.String("actor_id", actorID),
			zap.String("module_slug", moduleSlug),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load capabilities: %w", err)
	}
	defer rows.Close()

	caps := workflow.Capabilities{}
	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		caps[capability] = true
	}
	return caps, rows.Err()
}

// ActorsWithCapability lists the actors holding the capability in the module
func (r *PermissionRepository) ActorsWithCapability(ctx context.Context, moduleSlug, capability string) ([]string, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT actor_id FROM actor_capabilities WHERE module_slug = ? AND capability = ? ORDER BY actor_id`,
		moduleSlug, capability,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	defer rows.Close()

	var actors []string
	for rows.Next() {
		var actorID string
		if err := rows.Scan(&actorID); err != nil {
			return nil, fmt.Errorf("failed to scan actor: %w", err)
		}
		actors = append(actors, actorID)
	}
	return actors, rows.Err()
}

// Grant gives the actor a capability in the module. Granting twice is a no-op.
func (r *PermissionRepository) Grant(ctx context.Context, actorID, moduleSlug, capability string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT OR IGNORE INTO actor_capabilities (actor_id, module_slug, capability, granted_at)
		VALUES (?, ?, ?, ?)
	`, actorID, moduleSlug, capability, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to grant capability",
			zap.String("actor_id", actorID),
			zap.String("capability", capability),
			zap.Error(err))
		return fmt.Errorf("failed to grant capability: %w", err)
	}
	return nil
}

// Revoke removes a capability from the actor
func (r *PermissionRepository) Revoke(ctx context.Context, actorID, moduleSlug, capability string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM actor_capabilities WHERE actor_id = ? AND module_slug = ? AND capability = ?`,
		actorID, moduleSlug, capability,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke capability: %w", err)
	}
	return nil
}

var (
	_ port.PermissionResolver = (*PermissionRepository)(nil)
	_ port.ApproverDirectory  = (*PermissionRepository)(nil)
)
