package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
)

// PostRepository persists campaign posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post row.
func (r *PostRepository) Create(ctx context.Context, post *models.CampaignPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO campaign_posts (id, campaign_id, title, content, public_post_date, created_at)
	VALUES (:id, :campaign_id, :title, :content, :public_post_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create campaign post: %w", err)
	}
	return nil
}

// GetByID fetches a post by identifier.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.CampaignPost, error) {
	const query = `SELECT id, campaign_id, title, content, public_post_date, created_at
	FROM campaign_posts WHERE id = $1`
	var post models.CampaignPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListByCampaign returns a campaign's posts, newest first. When publicOnly
// is set, drafts (nil public_post_date) are excluded.
func (r *PostRepository) ListByCampaign(ctx context.Context, campaignID string, publicOnly bool) ([]models.CampaignPost, error) {
	query := `SELECT id, campaign_id, title, content, public_post_date, created_at
	FROM campaign_posts WHERE campaign_id = $1`
	if publicOnly {
		query += ` AND public_post_date IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC`

	var posts []models.CampaignPost
	if err := r.db.SelectContext(ctx, &posts, query, campaignID); err != nil {
		return nil, fmt.Errorf("list campaign posts: %w", err)
	}
	return posts, nil
}

// Publish sets the public date on a draft post. Posts already public keep
// their original date.
func (r *PostRepository) Publish(ctx context.Context, id string, publishedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE campaign_posts SET public_post_date = $1
		 WHERE id = $2 AND public_post_date IS NULL`,
		publishedAt, id)
	if err != nil {
		return fmt.Errorf("publish campaign post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check post publish rows: %w", err)
	}
	if rows == 0 {
		// Already public; treat as satisfied rather than failing resolution.
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM campaign_posts WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("check post existence: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
	}
	return nil
}
