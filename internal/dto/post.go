package dto

import "time"

// CreatePostRequest publishes a campaign update directly (owner path, no
// review). PublicPostDate defaults to now when omitted.
type CreatePostRequest struct {
	Title          string     `json:"title" binding:"required,max=200"`
	Content        string     `json:"content" binding:"required"`
	PublicPostDate *time.Time `json:"public_post_date,omitempty"`
}
