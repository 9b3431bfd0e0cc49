package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
)

// ChangeRequestRepository persists campaign change requests.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

const changeRequestColumns = `id, campaign_id, type, title, justification, request_date,
       resolution_date, resolution_type, new_goal, new_status, new_end_date, new_post_id`

// Create inserts a new pending change request.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestDate.IsZero() {
		request.RequestDate = time.Now().UTC()
	}
	const query = `INSERT INTO change_requests
	(id, campaign_id, type, title, justification, request_date, resolution_date, resolution_type,
	 new_goal, new_status, new_end_date, new_post_id)
	VALUES (:id, :campaign_id, :type, :title, :justification, :request_date, :resolution_date, :resolution_type,
	 :new_goal, :new_status, :new_end_date, :new_post_id)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1`
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns change requests matching the filter (newest first).
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT cr.id, cr.campaign_id, cr.type, cr.title, cr.justification, cr.request_date,
       cr.resolution_date, cr.resolution_type, cr.new_goal, cr.new_status, cr.new_end_date, cr.new_post_id
	FROM change_requests cr`)

	conditions := make([]string, 0, 4)
	if filter.RecipientID != "" {
		builder.WriteString(" JOIN campaigns c ON c.id = cr.campaign_id")
		args = append(args, filter.RecipientID)
		conditions = append(conditions, fmt.Sprintf("c.recipient_id = $%d", len(args)))
	}
	if filter.CampaignID != "" {
		args = append(args, filter.CampaignID)
		conditions = append(conditions, fmt.Sprintf("cr.campaign_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("cr.type = $%d", len(args)))
	}
	if filter.PendingOnly {
		conditions = append(conditions, "cr.resolution_type IS NULL")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY cr.request_date DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return requests, nil
}

// ResolveParams groups the terminal fields written by a resolution.
type ResolveParams struct {
	ID             string
	Resolution     models.ResolutionType
	ResolutionDate time.Time
}

// Resolve writes the terminal fields if and only if the request is still
// unresolved. A lost race (request already resolved) surfaces as
// sql.ErrNoRows for the caller to map to a conflict.
func (r *ChangeRequestRepository) Resolve(ctx context.Context, params ResolveParams) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE change_requests SET resolution_type = $1, resolution_date = $2
		 WHERE id = $3 AND resolution_type IS NULL`,
		params.Resolution, params.ResolutionDate, params.ID)
	if err != nil {
		return fmt.Errorf("resolve change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check change request resolve rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
