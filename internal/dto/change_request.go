package dto

import (
	"time"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
)

// NewPostPayload is the full post carried by a POST_UPDATE request.
type NewPostPayload struct {
	Title          string     `json:"title" binding:"required,max=200"`
	Content        string     `json:"content" binding:"required"`
	PublicPostDate *time.Time `json:"public_post_date,omitempty"`
}

// CreateChangeRequestRequest is the recipient-facing creation payload.
// Exactly one of the variant fields must be present, matching Type.
type CreateChangeRequestRequest struct {
	CampaignID    string                   `json:"campaign_id" binding:"required"`
	Type          models.ChangeRequestType `json:"type" binding:"required"`
	Title         string                   `json:"title" binding:"required,max=200"`
	Justification string                   `json:"justification" binding:"required"`

	NewGoal    string                 `json:"new_goal,omitempty"`
	NewStatus  *models.CampaignStatus `json:"new_status,omitempty"`
	NewEndDate *time.Time             `json:"new_end_date,omitempty"`
	NewPost    *NewPostPayload        `json:"new_post,omitempty"`
}

// ResolveChangeRequestRequest carries the supervisor decision.
type ResolveChangeRequestRequest struct {
	Resolution models.ResolutionType `json:"resolution" binding:"required"`
}

// ChangeRequestQuery captures list filters from query parameters.
type ChangeRequestQuery struct {
	CampaignID  string
	Type        models.ChangeRequestType
	PendingOnly bool
	Page        int
	PageSize    int
}
