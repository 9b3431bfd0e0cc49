package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/dto"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

type campaignStore interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, error)
	UpdateStatusFields(ctx context.Context, campaign *models.Campaign) error
	AddToTotalDonated(ctx context.Context, id string, delta money.Amount) error
	AddDocument(ctx context.Context, doc *models.CampaignDocument) error
	ListDocuments(ctx context.Context, campaignID string) ([]models.CampaignDocument, error)
}

type campaignPostStore interface {
	Create(ctx context.Context, post *models.CampaignPost) error
	ListByCampaign(ctx context.Context, campaignID string, publicOnly bool) ([]models.CampaignPost, error)
}

type donationRecorder interface {
	Create(ctx context.Context, donation *models.Donation) error
	List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error)
}

type campaignNotifier interface {
	Notify(userID, subject, body string)
	NotifySupervisors(ctx context.Context, subject, body string)
}

// CampaignService owns the campaign lifecycle: submission, supervisor
// review, documents, posts, and donation recording.
type CampaignService struct {
	campaigns campaignStore
	posts     campaignPostStore
	donations donationRecorder
	notifier  campaignNotifier
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCampaignService constructs the service.
func NewCampaignService(campaigns campaignStore, posts campaignPostStore, donations donationRecorder, notifier campaignNotifier, metrics *MetricsService, logger *zap.Logger) *CampaignService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignService{
		campaigns: campaigns,
		posts:     posts,
		donations: donations,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// Submit creates a campaign in PENDING_REVIEW owned by the acting recipient.
func (s *CampaignService) Submit(ctx context.Context, req dto.CreateCampaignRequest, actor *models.JWTClaims) (*models.Campaign, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleRecipient {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only recipients can submit campaigns")
	}

	goal, err := money.Parse(req.FundraisingGoal)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fundraising goal must be a non-negative decimal amount")
	}

	campaign := &models.Campaign{
		RecipientID:     actor.UserID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		FundraisingGoal: goal,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create campaign")
	}

	if s.notifier != nil {
		s.notifier.NotifySupervisors(ctx, "Campaign submitted for review",
			fmt.Sprintf("Campaign %q is awaiting verification.", campaign.Title))
	}
	return campaign, nil
}

// Get returns a campaign enforcing visibility. Non-public campaigns are
// visible only to their owner and to supervisors.
func (s *CampaignService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Campaign, error) {
	campaign, err := s.loadCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.IsPublic && !canManageCampaign(campaign, actor) {
		return nil, appErrors.ErrNotFound
	}
	if canManageCampaign(campaign, actor) {
		docs, err := s.campaigns.ListDocuments(ctx, campaign.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign documents")
		}
		campaign.Documents = docs
	}
	return campaign, nil
}

// List returns campaigns visible to the actor. Anonymous callers see public
// campaigns only; recipients see their own; supervisors see everything.
func (s *CampaignService) List(ctx context.Context, query dto.CampaignQuery, actor *models.JWTClaims) ([]models.Campaign, error) {
	filter := models.CampaignFilter{
		Status: query.Status,
		Search: strings.TrimSpace(query.Search),
		Limit:  query.PageSize,
	}
	if query.Page > 1 && query.PageSize > 0 {
		filter.Offset = (query.Page - 1) * query.PageSize
	}

	switch {
	case actor == nil:
		filter.PublicOnly = true
	case actor.Role == models.RoleSupervisor:
		// full access
	case actor.Role == models.RoleRecipient:
		filter.RecipientID = actor.UserID
	default:
		filter.PublicOnly = true
	}

	campaigns, err := s.campaigns.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campaigns")
	}
	return campaigns, nil
}

// Review moves the campaign to the requested status. Only supervisors may
// review; the transition table decides legality and side effects.
func (s *CampaignService) Review(ctx context.Context, id string, req dto.ReviewCampaignRequest, actor *models.JWTClaims) (*models.Campaign, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only supervisors can review campaigns")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown campaign status: %s", req.Status))
	}

	campaign, err := s.loadCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := models.ApplyTransition(campaign, req.Status, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.campaigns.UpdateStatusFields(ctx, campaign); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist campaign status")
	}

	if s.notifier != nil {
		s.notifier.Notify(campaign.RecipientID, "Campaign status updated",
			fmt.Sprintf("Campaign %q is now %s.", campaign.Title, campaign.Status))
	}
	return campaign, nil
}

// AttachDocument links a stored document to the campaign. Owner only.
func (s *CampaignService) AttachDocument(ctx context.Context, campaignID string, req dto.AttachDocumentRequest, actor *models.JWTClaims) (*models.CampaignDocument, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.RecipientID != actor.UserID && actor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "campaign belongs to another recipient")
	}

	doc := &models.CampaignDocument{
		CampaignID:          campaign.ID,
		DocumentURL:         req.DocumentURL,
		RedactedDocumentURL: req.RedactedDocumentURL,
	}
	if err := s.campaigns.AddDocument(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach document")
	}
	return doc, nil
}

// CreatePost publishes a campaign update directly. This is the owner path;
// posts created through change requests stay private until accepted.
func (s *CampaignService) CreatePost(ctx context.Context, campaignID string, req dto.CreatePostRequest, actor *models.JWTClaims) (*models.CampaignPost, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.RecipientID != actor.UserID && actor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "campaign belongs to another recipient")
	}

	publishedAt := time.Now().UTC()
	if req.PublicPostDate != nil {
		publishedAt = req.PublicPostDate.UTC()
	}
	post := &models.CampaignPost{
		CampaignID:     campaign.ID,
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		PublicPostDate: &publishedAt,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// ListPosts returns a campaign's posts. Drafts are visible only to the
// owner and supervisors.
func (s *CampaignService) ListPosts(ctx context.Context, campaignID string, actor *models.JWTClaims) ([]models.CampaignPost, error) {
	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	manage := canManageCampaign(campaign, actor)
	if !campaign.IsPublic && !manage {
		return nil, appErrors.ErrNotFound
	}
	posts, err := s.posts.ListByCampaign(ctx, campaign.ID, !manage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, nil
}

// RecordDonation persists a completed donation reported by the payment
// gateway and updates the campaign's cached total. Amounts arrive as
// decimal strings and are stored as exact minor units.
func (s *CampaignService) RecordDonation(ctx context.Context, req dto.RecordDonationRequest) (*models.Donation, error) {
	gross, err := money.Parse(req.GrossAmount)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "gross amount must be a non-negative decimal amount")
	}
	fee, err := money.Parse(req.ServiceFee)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "service fee must be a non-negative decimal amount")
	}
	if gross <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "gross amount must be greater than zero")
	}
	if fee > gross {
		return nil, appErrors.Clone(appErrors.ErrValidation, "service fee cannot exceed gross amount")
	}

	campaign, err := s.loadCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusLive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "campaign is not accepting donations")
	}

	donation := &models.Donation{
		CampaignID:     campaign.ID,
		GrossAmount:    gross,
		ServiceFee:     fee,
		TransactionRef: req.TransactionRef,
	}
	if err := s.donations.Create(ctx, donation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "donation already recorded or invalid")
	}
	if err := s.campaigns.AddToTotalDonated(ctx, campaign.ID, gross); err != nil {
		s.logger.Error("failed to update campaign donation total",
			zap.Error(err), zap.String("campaign_id", campaign.ID))
	}

	s.metrics.ObserveDonationRecorded()
	if s.notifier != nil {
		s.notifier.Notify(campaign.RecipientID, "New donation received",
			fmt.Sprintf("Campaign %q received %s.", campaign.Title, gross.String()))
	}
	return donation, nil
}

// ListDonations returns a campaign's donations to its owner or a supervisor.
func (s *CampaignService) ListDonations(ctx context.Context, campaignID string, query dto.DonationQuery, actor *models.JWTClaims) ([]models.Donation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !canManageCampaign(campaign, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "campaign belongs to another recipient")
	}

	filter := models.DonationFilter{
		CampaignID:        campaign.ID,
		UntransferredOnly: query.UntransferredOnly,
		Limit:             query.PageSize,
	}
	if query.Page > 1 && query.PageSize > 0 {
		filter.Offset = (query.Page - 1) * query.PageSize
	}
	donations, err := s.donations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donations")
	}
	return donations, nil
}

func (s *CampaignService) loadCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	return campaign, nil
}

func canManageCampaign(campaign *models.Campaign, actor *models.JWTClaims) bool {
	if campaign == nil || actor == nil {
		return false
	}
	return actor.Role == models.RoleSupervisor || campaign.RecipientID == actor.UserID
}
