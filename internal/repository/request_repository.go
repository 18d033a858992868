package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/accessdesk/access-api/internal/models"
)

const requestColumns = `id, assets, access_type, environment, requester_eid, requester_name, requester_title, requester_lob, fields, status, approver_path, current_approver_index, attachments, selected_roles, denial_reason, last_nudged_at, created_at, updated_at`

// RequestRepository persists submitted access requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateBatch inserts all requests from one submission atomically. A draft
// covering several assets fans out into one row per asset; either all rows
// land or none do.
func (r *RequestRepository) CreateBatch(ctx context.Context, requests []models.AccessRequest) error {
	if len(requests) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}
	const query = `INSERT INTO access_requests (` + requestColumns + `)
VALUES (:id, :assets, :access_type, :environment, :requester_eid, :requester_name, :requester_title, :requester_lob, :fields, :status, :approver_path, :current_approver_index, :attachments, :selected_roles, :denial_reason, :last_nudged_at, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range requests {
		if requests[i].ID == "" {
			requests[i].ID = uuid.NewString()
		}
		if requests[i].CreatedAt.IsZero() {
			requests[i].CreatedAt = now
		}
		requests[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, requests[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert access request: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}

// FindByID fetches a single request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1 LIMIT 1`
	var req models.AccessRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find access request: %w", err)
	}
	return &req, nil
}

// ListByRequester returns the requester's own submissions, newest first.
func (r *RequestRepository) ListByRequester(ctx context.Context, eid string, status *models.RequestStatus, page, pageSize int) ([]models.AccessRequest, int, error) {
	baseQuery := `FROM access_requests WHERE requester_eid = $1`
	args := []interface{}{eid}
	if status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *status)
	}
	return r.list(ctx, baseQuery, args, page, pageSize)
}

// ListPendingForApprover returns requests whose current approver slot matches
// the given role label, oldest first so the queue drains in arrival order.
func (r *RequestRepository) ListPendingForApprover(ctx context.Context, approverRole string, page, pageSize int) ([]models.AccessRequest, int, error) {
	baseQuery := `FROM access_requests
WHERE status NOT IN ('approved', 'denied')
  AND approver_path[current_approver_index + 1] = $1`
	args := []interface{}{approverRole}

	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC LIMIT %d OFFSET %d", requestColumns, baseQuery, pageSize, offset)
	var requests []models.AccessRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list pending requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count pending requests: %w", err)
	}
	return requests, total, nil
}

func (r *RequestRepository) list(ctx context.Context, baseQuery string, args []interface{}, page, pageSize int) ([]models.AccessRequest, int, error) {
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", requestColumns, baseQuery, pageSize, offset)
	var requests []models.AccessRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list access requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count access requests: %w", err)
	}
	return requests, total, nil
}

// UpdateDecision advances or finalizes a request after an approver action.
func (r *RequestRepository) UpdateDecision(ctx context.Context, req *models.AccessRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE access_requests
SET status = :status, current_approver_index = :current_approver_index,
    denial_reason = :denial_reason, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update request decision: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateAuditLog stores an audit log entry tied to a request lifecycle event.
func (r *RequestRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// RecordNudge stamps the last nudge time on a request.
func (r *RequestRepository) RecordNudge(ctx context.Context, id string, nudgedAt time.Time) error {
	const query = `UPDATE access_requests SET last_nudged_at = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, nudgedAt); err != nil {
		return fmt.Errorf("record nudge: %w", err)
	}
	return nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
