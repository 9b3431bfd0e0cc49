package dto

// RecordDonationRequest is the payment-gateway callback payload recording a
// completed donation. Amounts arrive as decimal strings.
type RecordDonationRequest struct {
	CampaignID     string `json:"campaign_id" binding:"required"`
	GrossAmount    string `json:"gross_amount" binding:"required"`
	ServiceFee     string `json:"service_fee" binding:"required"`
	TransactionRef string `json:"transaction_ref" binding:"required"`
}

// DonationQuery captures list filters from query parameters.
type DonationQuery struct {
	UntransferredOnly bool
	Page              int
	PageSize          int
}
