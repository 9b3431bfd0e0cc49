package models

import (
	"time"

	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// CampaignStatus enumerates the campaign lifecycle states.
type CampaignStatus string

const (
	CampaignStatusPendingReview CampaignStatus = "PENDING_REVIEW"
	CampaignStatusVerified      CampaignStatus = "VERIFIED"
	CampaignStatusDenied        CampaignStatus = "DENIED"
	CampaignStatusLive          CampaignStatus = "LIVE"
	CampaignStatusPaused        CampaignStatus = "PAUSED"
	CampaignStatusCompleted     CampaignStatus = "COMPLETED"
)

// Valid returns true when the status is a supported value.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusPendingReview, CampaignStatusVerified, CampaignStatusDenied,
		CampaignStatusLive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	default:
		return false
	}
}

// CampaignStatuses lists every status in a stable order.
var CampaignStatuses = []CampaignStatus{
	CampaignStatusPendingReview,
	CampaignStatusVerified,
	CampaignStatusDenied,
	CampaignStatusLive,
	CampaignStatusPaused,
	CampaignStatusCompleted,
}

// Campaign represents a persisted fundraising campaign.
type Campaign struct {
	ID          string         `db:"id" json:"id"`
	RecipientID string         `db:"recipient_id" json:"recipient_id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Status      CampaignStatus `db:"status" json:"status"`

	FundraisingGoal money.Amount `db:"fundraising_goal" json:"fundraising_goal"`
	TotalDonated    money.Amount `db:"total_donated" json:"total_donated"`

	// Lifecycle dates; each is written only by a specific transition.
	SubmissionDate   time.Time  `db:"submission_date" json:"submission_date"`
	VerificationDate *time.Time `db:"verification_date" json:"verification_date,omitempty"`
	DenialDate       *time.Time `db:"denial_date" json:"denial_date,omitempty"`
	LaunchDate       *time.Time `db:"launch_date" json:"launch_date,omitempty"`
	EndDate          *time.Time `db:"end_date" json:"end_date,omitempty"`

	// Derived from status; never settable by a caller.
	IsPublic bool `db:"is_public" json:"is_public"`

	Documents []CampaignDocument `db:"-" json:"documents,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CampaignDocument is a supporting document owned by exactly one campaign.
type CampaignDocument struct {
	ID                  string    `db:"id" json:"id"`
	CampaignID          string    `db:"campaign_id" json:"campaign_id"`
	DocumentURL         string    `db:"document_url" json:"document_url"`
	RedactedDocumentURL *string   `db:"redacted_document_url" json:"redacted_document_url,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// CampaignFilter constrains campaign listing queries.
type CampaignFilter struct {
	Status      []CampaignStatus
	RecipientID string
	PublicOnly  bool
	Search      string
	Limit       int
	Offset      int
}
