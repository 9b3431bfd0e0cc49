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
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// CampaignRepository persists campaigns and their documents.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository constructs the repository.
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, recipient_id, title, description, status, fundraising_goal, total_donated,
       submission_date, verification_date, denial_date, launch_date, end_date, is_public, created_at, updated_at`

// Create inserts a new campaign row.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusPendingReview
	}
	if campaign.SubmissionDate.IsZero() {
		campaign.SubmissionDate = now
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now

	const query = `INSERT INTO campaigns
	(id, recipient_id, title, description, status, fundraising_goal, total_donated,
	 submission_date, verification_date, denial_date, launch_date, end_date, is_public, created_at, updated_at)
	VALUES (:id, :recipient_id, :title, :description, :status, :fundraising_goal, :total_donated,
	 :submission_date, :verification_date, :denial_date, :launch_date, :end_date, :is_public, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, campaign); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// GetByID fetches a campaign by identifier.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	var campaign models.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// List returns campaigns matching the filter (latest submissions first).
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + campaignColumns + ` FROM campaigns`)

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", len(args)))
	}
	if filter.PublicOnly {
		conditions = append(conditions, "is_public = TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submission_date DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var campaigns []models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, nil
}

// UpdateGoal sets a new fundraising goal.
func (r *CampaignRepository) UpdateGoal(ctx context.Context, id string, goal money.Amount) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET fundraising_goal = $1, updated_at = $2 WHERE id = $3`,
		goal, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update campaign goal: %w", err)
	}
	return requireRow(result)
}

// UpdateEndDate sets a new end date.
func (r *CampaignRepository) UpdateEndDate(ctx context.Context, id string, endDate time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET end_date = $1, updated_at = $2 WHERE id = $3`,
		endDate, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update campaign end date: %w", err)
	}
	return requireRow(result)
}

// UpdateStatusFields persists the status plus every transition side effect
// (dates, visibility) as one statement so partial application is never
// observable.
func (r *CampaignRepository) UpdateStatusFields(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now().UTC()
	const query = `UPDATE campaigns SET
		status = :status,
		verification_date = :verification_date,
		denial_date = :denial_date,
		launch_date = :launch_date,
		end_date = :end_date,
		is_public = :is_public,
		updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, campaign)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	return requireRow(result)
}

// AddToTotalDonated increments the cached donation total.
func (r *CampaignRepository) AddToTotalDonated(ctx context.Context, id string, delta money.Amount) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET total_donated = total_donated + $1, updated_at = $2 WHERE id = $3`,
		delta, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update campaign donation total: %w", err)
	}
	return requireRow(result)
}

// AddDocument attaches a supporting document to the campaign.
func (r *CampaignRepository) AddDocument(ctx context.Context, doc *models.CampaignDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO campaign_documents (id, campaign_id, document_url, redacted_document_url, created_at)
	VALUES (:id, :campaign_id, :document_url, :redacted_document_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("add campaign document: %w", err)
	}
	return nil
}

// ListDocuments returns the campaign's documents in insertion order.
func (r *CampaignRepository) ListDocuments(ctx context.Context, campaignID string) ([]models.CampaignDocument, error) {
	const query = `SELECT id, campaign_id, document_url, redacted_document_url, created_at
	FROM campaign_documents WHERE campaign_id = $1 ORDER BY created_at ASC`
	var docs []models.CampaignDocument
	if err := r.db.SelectContext(ctx, &docs, query, campaignID); err != nil {
		return nil, fmt.Errorf("list campaign documents: %w", err)
	}
	return docs, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
