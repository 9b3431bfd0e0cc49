package dto

import "github.com/bitbender-8/cs-fy-project-sub000/internal/models"

// CreateCampaignRequest is the recipient-facing submission payload. The
// goal arrives as a decimal string and is validated by the money codec.
type CreateCampaignRequest struct {
	Title           string `json:"title" binding:"required,max=200"`
	Description     string `json:"description" binding:"required"`
	FundraisingGoal string `json:"fundraising_goal" binding:"required"`
}

// ReviewCampaignRequest is the supervisor-facing direct status review.
type ReviewCampaignRequest struct {
	Status models.CampaignStatus `json:"status" binding:"required"`
}

// CampaignQuery captures list filters from query parameters.
type CampaignQuery struct {
	Status   []models.CampaignStatus
	Search   string
	Page     int
	PageSize int
}

// AttachDocumentRequest links an uploaded document to a campaign.
type AttachDocumentRequest struct {
	DocumentURL         string  `json:"document_url" binding:"required,url"`
	RedactedDocumentURL *string `json:"redacted_document_url,omitempty" binding:"omitempty,url"`
}
