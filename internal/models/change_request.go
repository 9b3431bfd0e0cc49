package models

import (
	"time"

	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// ChangeRequestType discriminates the four change request variants.
type ChangeRequestType string

const (
	ChangeRequestTypeGoalAdjustment   ChangeRequestType = "GOAL_ADJUSTMENT"
	ChangeRequestTypeStatusChange     ChangeRequestType = "STATUS_CHANGE"
	ChangeRequestTypeEndDateExtension ChangeRequestType = "END_DATE_EXTENSION"
	ChangeRequestTypePostUpdate       ChangeRequestType = "POST_UPDATE"
)

// Valid returns true when the type is a supported variant.
func (t ChangeRequestType) Valid() bool {
	switch t {
	case ChangeRequestTypeGoalAdjustment, ChangeRequestTypeStatusChange,
		ChangeRequestTypeEndDateExtension, ChangeRequestTypePostUpdate:
		return true
	default:
		return false
	}
}

// ResolutionType is the terminal outcome of a change request.
type ResolutionType string

const (
	ResolutionAccepted ResolutionType = "ACCEPTED"
	ResolutionRejected ResolutionType = "REJECTED"
)

// ChangeRequest is a recipient-submitted proposal to alter a live campaign.
// The base columns are shared across variants; exactly one variant payload
// column group is populated, discriminated by Type.
type ChangeRequest struct {
	ID            string            `db:"id" json:"id"`
	CampaignID    string            `db:"campaign_id" json:"campaign_id"`
	Type          ChangeRequestType `db:"type" json:"type"`
	Title         string            `db:"title" json:"title"`
	Justification string            `db:"justification" json:"justification"`

	RequestDate    time.Time       `db:"request_date" json:"request_date"`
	ResolutionDate *time.Time      `db:"resolution_date" json:"resolution_date,omitempty"`
	ResolutionType *ResolutionType `db:"resolution_type" json:"resolution_type,omitempty"`

	// Variant payloads; the column matching Type is set, the rest are NULL.
	NewGoal    *money.Amount   `db:"new_goal" json:"new_goal,omitempty"`
	NewStatus  *CampaignStatus `db:"new_status" json:"new_status,omitempty"`
	NewEndDate *time.Time      `db:"new_end_date" json:"new_end_date,omitempty"`
	NewPostID  *string         `db:"new_post_id" json:"new_post_id,omitempty"`

	// Hydrated post payload for POST_UPDATE requests; not a column.
	NewPost *CampaignPost `db:"-" json:"new_post,omitempty"`
}

// Resolved reports whether the request has reached its terminal state.
func (r *ChangeRequest) Resolved() bool {
	return r.ResolutionType != nil
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	CampaignID  string
	RecipientID string
	Type        ChangeRequestType
	PendingOnly bool
	Limit       int
	Offset      int
}
