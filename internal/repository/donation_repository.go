package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
)

// DonationRepository persists campaign donations.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository constructs the repository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a new donation row. The transaction reference carries a
// unique constraint so gateway callbacks replayed by the provider fail here.
func (r *DonationRepository) Create(ctx context.Context, donation *models.Donation) error {
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	if donation.DonatedAt.IsZero() {
		donation.DonatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO donations (id, campaign_id, gross_amount, service_fee, transaction_ref, is_transferred, donated_at)
	VALUES (:id, :campaign_id, :gross_amount, :service_fee, :transaction_ref, :is_transferred, :donated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, donation); err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

// List returns donations matching the filter, oldest first so settlement
// receipts read chronologically.
func (r *DonationRepository) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString(`SELECT id, campaign_id, gross_amount, service_fee, transaction_ref, is_transferred, donated_at
	FROM donations`)

	conditions := make([]string, 0, 2)
	if filter.CampaignID != "" {
		args = append(args, filter.CampaignID)
		conditions = append(conditions, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	if filter.UntransferredOnly {
		conditions = append(conditions, "is_transferred = FALSE")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY donated_at ASC")

	if filter.Limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			builder.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	var donations []models.Donation
	if err := r.db.SelectContext(ctx, &donations, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// MarkTransferred flips is_transferred on the given donations in a single
// statement. Rows already transferred are not matched, so a short count
// reveals a concurrent settlement.
func (r *DonationRepository) MarkTransferred(ctx context.Context, campaignID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE donations SET is_transferred = TRUE
		 WHERE campaign_id = $1 AND id = ANY($2) AND is_transferred = FALSE`,
		campaignID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark donations transferred: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check mark transferred rows: %w", err)
	}
	if rows != int64(len(ids)) {
		return sql.ErrNoRows
	}
	return nil
}
