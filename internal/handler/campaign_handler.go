package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/dto"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/response"
)

type campaignService interface {
	Submit(ctx context.Context, req dto.CreateCampaignRequest, actor *models.JWTClaims) (*models.Campaign, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Campaign, error)
	List(ctx context.Context, query dto.CampaignQuery, actor *models.JWTClaims) ([]models.Campaign, error)
	Review(ctx context.Context, id string, req dto.ReviewCampaignRequest, actor *models.JWTClaims) (*models.Campaign, error)
	AttachDocument(ctx context.Context, campaignID string, req dto.AttachDocumentRequest, actor *models.JWTClaims) (*models.CampaignDocument, error)
	CreatePost(ctx context.Context, campaignID string, req dto.CreatePostRequest, actor *models.JWTClaims) (*models.CampaignPost, error)
	ListPosts(ctx context.Context, campaignID string, actor *models.JWTClaims) ([]models.CampaignPost, error)
	RecordDonation(ctx context.Context, req dto.RecordDonationRequest) (*models.Donation, error)
	ListDonations(ctx context.Context, campaignID string, query dto.DonationQuery, actor *models.JWTClaims) ([]models.Donation, error)
}

// CampaignHandler exposes REST endpoints for campaigns.
type CampaignHandler struct {
	service campaignService
}

// NewCampaignHandler constructs the handler.
func NewCampaignHandler(service campaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// Create godoc
// @Summary Submit a campaign for review
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param payload body dto.CreateCampaignRequest true "Campaign payload"
// @Success 201 {object} response.Envelope
// @Router /campaigns [post]
func (h *CampaignHandler) Create(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid campaign payload"))
		return
	}
	campaign, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, campaign, nil)
}

// List godoc
// @Summary List campaigns
// @Tags Campaigns
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /campaigns [get]
func (h *CampaignHandler) List(c *gin.Context) {
	query := dto.CampaignQuery{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			query.Status = append(query.Status, models.CampaignStatus(part))
		}
	}

	campaigns, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaigns, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: len(campaigns),
	})
}

// Get godoc
// @Summary Get campaign detail
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id} [get]
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Review godoc
// @Summary Review a campaign (supervisor)
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.ReviewCampaignRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/review [post]
func (h *CampaignHandler) Review(c *gin.Context) {
	var req dto.ReviewCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	campaign, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// AttachDocument godoc
// @Summary Attach a supporting document
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.AttachDocumentRequest true "Document reference"
// @Success 201 {object} response.Envelope
// @Router /campaigns/{id}/documents [post]
func (h *CampaignHandler) AttachDocument(c *gin.Context) {
	var req dto.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	doc, err := h.service.AttachDocument(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, doc, nil)
}

// CreatePost godoc
// @Summary Publish a campaign update
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body dto.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Router /campaigns/{id}/posts [post]
func (h *CampaignHandler) CreatePost(c *gin.Context) {
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid post payload"))
		return
	}
	post, err := h.service.CreatePost(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, post, nil)
}

// ListPosts godoc
// @Summary List campaign updates
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/posts [get]
func (h *CampaignHandler) ListPosts(c *gin.Context) {
	posts, err := h.service.ListPosts(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, nil)
}

// RecordDonation godoc
// @Summary Record a completed donation (gateway callback)
// @Tags Donations
// @Accept json
// @Produce json
// @Param payload body dto.RecordDonationRequest true "Donation payload"
// @Success 201 {object} response.Envelope
// @Router /donations [post]
func (h *CampaignHandler) RecordDonation(c *gin.Context) {
	var req dto.RecordDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid donation payload"))
		return
	}
	donation, err := h.service.RecordDonation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, donation, nil)
}

// ListDonations godoc
// @Summary List a campaign's donations
// @Tags Donations
// @Produce json
// @Param id path string true "Campaign ID"
// @Param untransferred query bool false "Only unsettled donations"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/donations [get]
func (h *CampaignHandler) ListDonations(c *gin.Context) {
	query := dto.DonationQuery{
		UntransferredOnly: queryBool(c, "untransferred"),
		Page:              queryInt(c, "page", 1),
		PageSize:          queryInt(c, "page_size", 50),
	}
	donations, err := h.service.ListDonations(c.Request.Context(), c.Param("id"), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donations, nil)
}
