package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
	"github.com/garyjia/employee-requests/internal/infrastructure/persistence/sqlite"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// decisionPayload holds the department-owned inputs of a decision
type decisionPayload struct {
	ApprovedAmount       *decimal.Decimal         `json:"approved_amount,omitempty"`
	NumberOfInstallments int                      `json:"number_of_installments,omitempty"`
	ReceiptReviews       []workflow.ReceiptReview `json:"receipt_reviews,omitempty"`
	CompanyCarID         string                   `json:"company_car_id,omitempty"`
}

// assetColumns are the denormalized car reservation columns used by the availability lookup
type assetColumns struct {
	assetID sql.NullString
	from    sql.NullInt64
	to      sql.NullInt64
}

func assetColumnsOf(details workflow.Details) assetColumns {
	car := details.CarReservation
	if car == nil {
		return assetColumns{}
	}
	return assetColumns{
		assetID: sql.NullString{String: car.CompanyCarID, Valid: car.CompanyCarID != ""},
		from:    sql.NullInt64{Int64: car.From.Unix(), Valid: true},
		to:      sql.NullInt64{Int64: car.To.Unix(), Valid: true},
	}
}

// Create inserts a new request with version 1 and no decisions
func (r *RequestRepository) Create(ctx context.Context, req *workflow.Request) error {
	details, err := json.Marshal(req.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	encodedAttachments, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	now := r.now()
	asset := assetColumnsOf(req.Details)
	query := `
		INSERT INTO requests (
			kind, requested_by_id, status, purpose, details, attachments,
			asset_id, period_from_unix, period_to_unix,
			action_count, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?)
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		string(req.Kind),
		req.RequestedByID,
		string(req.Status),
		req.Purpose,
		string(details),
		string(encodedAttachments),
		asset.assetID,
		asset.from,
		asset.to,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("kind", string(req.Kind)), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	req.Version = 1
	req.AdminActions = nil
	req.Attachments = attachments
	req.CreatedAt = now
	req.UpdatedAt = now
	return nil
}

const requestColumns = `id, kind, requested_by_id, status, purpose, details, attachments,
	version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*workflow.Request, error) {
	var (
		req         workflow.Request
		kind        string
		status      string
		details     string
		attachments string
	)
	err := row.Scan(
		&req.ID,
		&kind,
		&req.RequestedByID,
		&status,
		&req.Purpose,
		&details,
		&attachments,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Kind = workflow.Kind(kind)
	req.Status = workflow.Status(status)
	if err := json.Unmarshal([]byte(details), &req.Details); err != nil {
		return nil, fmt.Errorf("failed to decode details of request %d: %w", req.ID, err)
	}
	if err := json.Unmarshal([]byte(attachments), &req.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments of request %d: %w", req.ID, err)
	}
	return &req, nil
}

// Get retrieves a request and its decisions
func (r *RequestRepository) Get(ctx context.Context, id int64) (*workflow.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`

	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", workflow.ErrRequestNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	actions, err := r.ListActions(ctx, id)
	if err != nil {
		return nil, err
	}
	req.AdminActions = actions
	return req, nil
}

// List retrieves requests matching the filter, newest first. Decisions are not loaded.
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.RequestedByID != "" {
		conditions = append(conditions, "requested_by_id = ?")
		args = append(args, filter.RequestedByID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var reqs []*workflow.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// ListActions retrieves the decisions of a request in recording order
func (r *RequestRepository) ListActions(ctx context.Context, id int64) ([]workflow.Decision, error) {
	query := `
		SELECT id, department, outcome, comment, actor_id, recorded_at, payload
		FROM request_decisions
		WHERE request_id = ?
		ORDER BY seq
	`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.Int64("request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var actions []workflow.Decision
	for rows.Next() {
		var (
			d          workflow.Decision
			department string
			outcome    string
			payload    string
		)
		if err := rows.Scan(&d.ID, &department, &outcome, &d.Comment, &d.ActorID, &d.RecordedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		var p decisionPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode decision %s: %w", d.ID, err)
		}
		d.Department = workflow.Department(department)
		d.Outcome = workflow.Outcome(outcome)
		d.ApprovedAmount = p.ApprovedAmount
		d.NumberOfInstallments = p.NumberOfInstallments
		d.ReceiptReviews = p.ReceiptReviews
		d.CompanyCarID = p.CompanyCarID
		actions = append(actions, d)
	}
	return actions, rows.Err()
}

// AppendDecision appends d if the request still has expectedActionCount decisions
func (r *RequestRepository) AppendDecision(ctx context.Context, id int64, d workflow.Decision, expectedActionCount int) error {
	if !sqlite.InTransaction(ctx) {
		return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
			return r.AppendDecision(txCtx, id, d, expectedActionCount)
		})
	}

	payload, err := json.Marshal(decisionPayload{
		ApprovedAmount:       d.ApprovedAmount,
		NumberOfInstallments: d.NumberOfInstallments,
		ReceiptReviews:       d.ReceiptReviews,
		CompanyCarID:         d.CompanyCarID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx,
		`UPDATE requests SET action_count = action_count + 1, updated_at = ? WHERE id = ? AND action_count = ?`,
		r.now(), id, expectedActionCount,
	)
	if err != nil {
		r.logger.Error("Failed to bump action count", zap.Int64("request_id", id), zap.Error(err))
		return fmt.Errorf("failed to append decision: %w", err)
	}
	if err := r.checkAffected(ctx, result, id); err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO request_decisions (
			id, request_id, seq, department, outcome, comment, actor_id, recorded_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID,
		id,
		expectedActionCount+1,
		string(d.Department),
		string(d.Outcome),
		d.Comment,
		d.ActorID,
		d.RecordedAt.UTC(),
		string(payload),
	)
	if sqlite.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s already decided on request %d", workflow.ErrConflictingDecision, d.Department, id)
	}
	if err != nil {
		r.logger.Error("Failed to insert decision", zap.Int64("request_id", id), zap.Error(err))
		return fmt.Errorf("failed to append decision: %w", err)
	}

	r.logger.Info("Decision appended",
		zap.Int64("request_id", id),
		zap.String("department", string(d.Department)),
		zap.String("outcome", string(d.Outcome)),
	)
	return nil
}

// SetDerivedFields writes status and details if the version is unchanged
func (r *RequestRepository) SetDerivedFields(ctx context.Context, id int64, fields port.DerivedFields) (int64, error) {
	details, err := json.Marshal(fields.Details)
	if err != nil {
		return 0, fmt.Errorf("failed to encode details: %w", err)
	}

	asset := assetColumnsOf(fields.Details)
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE requests
		SET status = ?, details = ?, asset_id = ?, period_from_unix = ?, period_to_unix = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		string(fields.Status),
		string(details),
		asset.assetID,
		asset.from,
		asset.to,
		r.now(),
		id,
		fields.ExpectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to set derived fields", zap.Int64("request_id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to set derived fields: %w", err)
	}
	if err := r.checkAffected(ctx, result, id); err != nil {
		return 0, err
	}
	return fields.ExpectedVersion + 1, nil
}

// checkAffected turns a guarded update that matched nothing into not-found or conflict
func (r *RequestRepository) checkAffected(ctx context.Context, result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.db.Executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check request: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %d", workflow.ErrRequestNotFound, id)
	}
	return fmt.Errorf("%w: request %d changed since it was read", workflow.ErrConflictingDecision, id)
}

var _ port.RequestRepository = (*RequestRepository)(nil)
