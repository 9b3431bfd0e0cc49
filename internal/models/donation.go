package models

import (
	"time"

	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

// Donation is a single contribution to a campaign. GrossAmount and
// ServiceFee are exact minor-unit values; IsTransferred flips false→true
// exactly once, via the settlement service only.
type Donation struct {
	ID             string       `db:"id" json:"id"`
	CampaignID     string       `db:"campaign_id" json:"campaign_id"`
	GrossAmount    money.Amount `db:"gross_amount" json:"gross_amount"`
	ServiceFee     money.Amount `db:"service_fee" json:"service_fee"`
	TransactionRef string       `db:"transaction_ref" json:"transaction_ref"`
	IsTransferred  bool         `db:"is_transferred" json:"is_transferred"`
	DonatedAt      time.Time    `db:"donated_at" json:"donated_at"`
}

// Net returns the transferable portion of the donation.
func (d *Donation) Net() money.Amount {
	return d.GrossAmount.Sub(d.ServiceFee)
}

// DonationFilter constrains donation listing queries.
type DonationFilter struct {
	CampaignID        string
	UntransferredOnly bool
	Limit             int
	Offset            int
}
