package models

import (
	"fmt"
	"time"

	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
)

// transitionEffect describes the campaign fields a legal transition writes.
// Dates are only written when still unset so re-applying a transition is
// idempotent.
type transitionEffect struct {
	setVerificationDate bool
	setDenialDate       bool
	setLaunchDate       bool
	setEndDate          bool
}

type statusPair struct {
	from CampaignStatus
	to   CampaignStatus
}

// legalTransitions is the exhaustive lookup table of allowed status moves
// and their side effects. Same-status pairs are handled separately as no-ops.
var legalTransitions = map[statusPair]transitionEffect{
	{CampaignStatusPendingReview, CampaignStatusVerified}: {setVerificationDate: true},
	{CampaignStatusPendingReview, CampaignStatusDenied}:   {setDenialDate: true},
	{CampaignStatusVerified, CampaignStatusLive}:          {setLaunchDate: true},
	{CampaignStatusVerified, CampaignStatusDenied}:        {setDenialDate: true},
	{CampaignStatusLive, CampaignStatusPaused}:            {},
	{CampaignStatusLive, CampaignStatusCompleted}:         {setEndDate: true},
	{CampaignStatusPaused, CampaignStatusLive}:            {},
	{CampaignStatusPaused, CampaignStatusCompleted}:       {setEndDate: true},
}

// ValidateTransition reports whether a campaign may move from old to target.
// It is pure: no side effects, no I/O. A nil return means the transition is
// allowed; otherwise the error carries a human-readable reason.
func ValidateTransition(old, target CampaignStatus) error {
	if !old.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown campaign status %q", old))
	}
	if !target.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown campaign status %q", target))
	}
	if old == target {
		return nil
	}
	if _, ok := legalTransitions[statusPair{old, target}]; ok {
		return nil
	}
	switch old {
	case CampaignStatusDenied, CampaignStatusCompleted:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is a terminal status", old))
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("campaign status cannot change from %s to %s", old, target))
	}
}

// ApplyTransition validates the move and applies the status value plus its
// side effects to the campaign in one unit. Dates already set are preserved;
// IsPublic is recomputed from the resulting status.
func ApplyTransition(c *Campaign, target CampaignStatus, now time.Time) error {
	if err := ValidateTransition(c.Status, target); err != nil {
		return err
	}

	effect := legalTransitions[statusPair{c.Status, target}]
	c.Status = target

	if effect.setVerificationDate && c.VerificationDate == nil {
		ts := now
		c.VerificationDate = &ts
	}
	if effect.setDenialDate && c.DenialDate == nil {
		ts := now
		c.DenialDate = &ts
	}
	if effect.setLaunchDate && c.LaunchDate == nil {
		ts := now
		c.LaunchDate = &ts
	}
	if effect.setEndDate && c.EndDate == nil {
		ts := now
		c.EndDate = &ts
	}

	c.IsPublic = target == CampaignStatusLive || target == CampaignStatusCompleted
	return nil
}
