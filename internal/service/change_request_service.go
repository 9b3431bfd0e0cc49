package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/dto"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/repository"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

type changeRequestStore interface {
	Create(ctx context.Context, request *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	Resolve(ctx context.Context, params repository.ResolveParams) error
}

type changeRequestCampaignStore interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	UpdateGoal(ctx context.Context, id string, goal money.Amount) error
	UpdateEndDate(ctx context.Context, id string, endDate time.Time) error
	UpdateStatusFields(ctx context.Context, campaign *models.Campaign) error
}

type changeRequestPostStore interface {
	Create(ctx context.Context, post *models.CampaignPost) error
	GetByID(ctx context.Context, id string) (*models.CampaignPost, error)
	Publish(ctx context.Context, id string, publishedAt time.Time) error
}

// ChangeRequestService orchestrates the request-and-review workflow through
// which recipients alter their campaigns. A request is created pending,
// reviewed by a supervisor exactly once, and, when accepted, applied to the
// campaign before the resolution is recorded.
type ChangeRequestService struct {
	requests  changeRequestStore
	campaigns changeRequestCampaignStore
	posts     changeRequestPostStore
	notifier  campaignNotifier
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewChangeRequestService constructs the service.
func NewChangeRequestService(requests changeRequestStore, campaigns changeRequestCampaignStore, posts changeRequestPostStore, notifier campaignNotifier, metrics *MetricsService, logger *zap.Logger) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{
		requests:  requests,
		campaigns: campaigns,
		posts:     posts,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// Create stores a new pending change request after validating that the
// actor owns the campaign and that exactly the variant payload matching
// the request type is present.
func (s *ChangeRequestService) Create(ctx context.Context, req dto.CreateChangeRequestRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleRecipient {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only recipients can submit change requests")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown change request type: %s", req.Type))
	}

	campaign, err := s.campaigns.GetByID(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	if campaign.RecipientID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "campaign belongs to another recipient")
	}

	request := &models.ChangeRequest{
		CampaignID:    campaign.ID,
		Type:          req.Type,
		Title:         req.Title,
		Justification: req.Justification,
	}
	if err := s.buildVariant(ctx, req, request); err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create change request")
	}

	s.metrics.ObserveChangeRequest(string(request.Type), "created")
	if s.notifier != nil {
		s.notifier.NotifySupervisors(ctx, "Change request submitted",
			fmt.Sprintf("Campaign %q has a pending %s request.", campaign.Title, request.Type))
	}
	return request, nil
}

// buildVariant validates the variant payload for the request type and fills
// the matching columns. Payload fields belonging to other variants must be
// absent. For POST_UPDATE the proposed post is persisted immediately as a
// draft; it stays invisible until the request is accepted.
func (s *ChangeRequestService) buildVariant(ctx context.Context, req dto.CreateChangeRequestRequest, request *models.ChangeRequest) error {
	extraneous := func(allowGoal, allowStatus, allowEndDate, allowPost bool) error {
		if !allowGoal && req.NewGoal != "" {
			return appErrors.Clone(appErrors.ErrValidation, "newGoal is not valid for this request type")
		}
		if !allowStatus && req.NewStatus != nil {
			return appErrors.Clone(appErrors.ErrValidation, "newStatus is not valid for this request type")
		}
		if !allowEndDate && req.NewEndDate != nil {
			return appErrors.Clone(appErrors.ErrValidation, "newEndDate is not valid for this request type")
		}
		if !allowPost && req.NewPost != nil {
			return appErrors.Clone(appErrors.ErrValidation, "newPost is not valid for this request type")
		}
		return nil
	}

	switch req.Type {
	case models.ChangeRequestTypeGoalAdjustment:
		if err := extraneous(true, false, false, false); err != nil {
			return err
		}
		goal, err := money.Parse(req.NewGoal)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "newGoal must be a non-negative decimal amount")
		}
		request.NewGoal = &goal

	case models.ChangeRequestTypeStatusChange:
		if err := extraneous(false, true, false, false); err != nil {
			return err
		}
		if req.NewStatus == nil || !req.NewStatus.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "newStatus must be a valid campaign status")
		}
		status := *req.NewStatus
		request.NewStatus = &status

	case models.ChangeRequestTypeEndDateExtension:
		if err := extraneous(false, false, true, false); err != nil {
			return err
		}
		if req.NewEndDate == nil {
			return appErrors.Clone(appErrors.ErrValidation, "newEndDate is required")
		}
		endDate := req.NewEndDate.UTC()
		if !endDate.After(time.Now().UTC()) {
			return appErrors.Clone(appErrors.ErrValidation, "newEndDate must be in the future")
		}
		request.NewEndDate = &endDate

	case models.ChangeRequestTypePostUpdate:
		if err := extraneous(false, false, false, true); err != nil {
			return err
		}
		if req.NewPost == nil || req.NewPost.Title == "" || req.NewPost.Content == "" {
			return appErrors.Clone(appErrors.ErrValidation, "newPost with title and content is required")
		}
		draft := &models.CampaignPost{
			CampaignID: request.CampaignID,
			Title:      req.NewPost.Title,
			Content:    req.NewPost.Content,
		}
		if err := s.posts.Create(ctx, draft); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proposed post")
		}
		request.NewPostID = &draft.ID
		request.NewPost = draft

	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown change request type: %s", req.Type))
	}
	return nil
}

// Get returns a change request. Recipients see only requests against their
// own campaigns.
func (s *ChangeRequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSupervisor {
		campaign, err := s.campaigns.GetByID(ctx, request.CampaignID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
		}
		if campaign.RecipientID != actor.UserID {
			return nil, appErrors.ErrNotFound
		}
	}
	s.hydratePost(ctx, request)
	return request, nil
}

// List returns change requests visible to the actor.
func (s *ChangeRequestService) List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ChangeRequestFilter{
		CampaignID:  query.CampaignID,
		Type:        query.Type,
		PendingOnly: query.PendingOnly,
		Limit:       query.PageSize,
	}
	if query.Page > 1 && query.PageSize > 0 {
		filter.Offset = (query.Page - 1) * query.PageSize
	}
	switch actor.Role {
	case models.RoleSupervisor:
		// full access
	case models.RoleRecipient:
		filter.RecipientID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	return requests, nil
}

// Resolve records the supervisor decision exactly once. Accepted requests
// apply their effect to the campaign first; the resolution write is
// conditional on the request still being pending, so a lost race never
// resolves twice. A race lost after the effect was applied can leave that
// campaign mutation in place while the request records the competing
// decision; reconciling that needs an operator.
func (s *ChangeRequestService) Resolve(ctx context.Context, id string, req dto.ResolveChangeRequestRequest, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only supervisors can resolve change requests")
	}
	if req.Resolution != models.ResolutionAccepted && req.Resolution != models.ResolutionRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resolution must be ACCEPTED or REJECTED")
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Resolved() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
	}

	campaign, err := s.campaigns.GetByID(ctx, request.CampaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}

	now := time.Now().UTC()
	if req.Resolution == models.ResolutionAccepted {
		if err := s.applyRequest(ctx, request, campaign, now); err != nil {
			return nil, err
		}
	}

	err = s.requests.Resolve(ctx, repository.ResolveParams{
		ID:             request.ID,
		Resolution:     req.Resolution,
		ResolutionDate: now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record resolution")
	}

	resolution := req.Resolution
	request.ResolutionType = &resolution
	request.ResolutionDate = &now

	s.metrics.ObserveChangeRequest(string(request.Type), string(req.Resolution))
	if s.notifier != nil {
		s.notifier.Notify(campaign.RecipientID, "Change request resolved",
			fmt.Sprintf("Your %s request for campaign %q was %s.", request.Type, campaign.Title, req.Resolution))
	}
	s.hydratePost(ctx, request)
	return request, nil
}

// applyRequest applies the variant effect of an accepted request.
func (s *ChangeRequestService) applyRequest(ctx context.Context, request *models.ChangeRequest, campaign *models.Campaign, now time.Time) error {
	switch request.Type {
	case models.ChangeRequestTypeGoalAdjustment:
		if request.NewGoal == nil {
			return appErrors.Clone(appErrors.ErrValidation, "change request is missing its new goal")
		}
		if err := s.campaigns.UpdateGoal(ctx, campaign.ID, *request.NewGoal); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply goal adjustment")
		}
		campaign.FundraisingGoal = *request.NewGoal

	case models.ChangeRequestTypeStatusChange:
		if request.NewStatus == nil {
			return appErrors.Clone(appErrors.ErrValidation, "change request is missing its new status")
		}
		if campaign.Status == *request.NewStatus {
			return nil
		}
		if err := models.ApplyTransition(campaign, *request.NewStatus, now); err != nil {
			return err
		}
		if err := s.campaigns.UpdateStatusFields(ctx, campaign); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply status change")
		}

	case models.ChangeRequestTypeEndDateExtension:
		if request.NewEndDate == nil {
			return appErrors.Clone(appErrors.ErrValidation, "change request is missing its new end date")
		}
		if err := s.campaigns.UpdateEndDate(ctx, campaign.ID, *request.NewEndDate); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply end date extension")
		}
		endDate := *request.NewEndDate
		campaign.EndDate = &endDate

	case models.ChangeRequestTypePostUpdate:
		if request.NewPostID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "change request is missing its proposed post")
		}
		if err := s.posts.Publish(ctx, *request.NewPostID, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "proposed post no longer exists")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish proposed post")
		}

	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown change request type: %s", request.Type))
	}
	return nil
}

func (s *ChangeRequestService) loadRequest(ctx context.Context, id string) (*models.ChangeRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	return request, nil
}

func (s *ChangeRequestService) hydratePost(ctx context.Context, request *models.ChangeRequest) {
	if request.Type != models.ChangeRequestTypePostUpdate || request.NewPostID == nil || request.NewPost != nil {
		return
	}
	post, err := s.posts.GetByID(ctx, *request.NewPostID)
	if err != nil {
		s.logger.Warn("failed to hydrate proposed post",
			zap.Error(err), zap.String("change_request_id", request.ID))
		return
	}
	request.NewPost = post
}
