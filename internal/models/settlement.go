package models

import (
	"time"

	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// SettlementResult reports the outcome of one settlement attempt.
type SettlementResult struct {
	CampaignID        string       `json:"campaign_id"`
	Reference         string       `json:"reference,omitempty"`
	ProviderReference string       `json:"provider_reference,omitempty"`
	NetAmount         money.Amount `json:"net_amount"`
	DonationCount     int          `json:"donation_count"`
	NothingToTransfer bool         `json:"nothing_to_transfer"`
	SettledAt         time.Time    `json:"settled_at"`
	ReceiptURL        string       `json:"receipt_url,omitempty"`
}
