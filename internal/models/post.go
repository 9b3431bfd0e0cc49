package models

import "time"

// CampaignPost is an update published on a campaign page. A post created
// through a POST_UPDATE change request stays private (PublicPostDate nil)
// until the request is accepted.
type CampaignPost struct {
	ID             string     `db:"id" json:"id"`
	CampaignID     string     `db:"campaign_id" json:"campaign_id"`
	Title          string     `db:"title" json:"title"`
	Content        string     `db:"content" json:"content"`
	PublicPostDate *time.Time `db:"public_post_date" json:"public_post_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Public reports whether the post is visible to donors.
func (p *CampaignPost) Public() bool {
	return p.PublicPostDate != nil
}
