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

type changeRequestService interface {
	Create(ctx context.Context, req dto.CreateChangeRequestRequest, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error)
	Resolve(ctx context.Context, id string, req dto.ResolveChangeRequestRequest, actor *models.JWTClaims) (*models.ChangeRequest, error)
}

// ChangeRequestHandler exposes REST endpoints for the change request workflow.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Create godoc
// @Summary Submit a change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequestRequest true "Change request payload"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// List godoc
// @Summary List change requests
// @Tags ChangeRequests
// @Produce json
// @Param campaign_id query string false "Campaign ID"
// @Param type query string false "Request type"
// @Param pending query bool false "Pending only"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	query := dto.ChangeRequestQuery{
		CampaignID:  c.Query("campaign_id"),
		PendingOnly: queryBool(c, "pending"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}
	if rawType := c.Query("type"); rawType != "" {
		query.Type = models.ChangeRequestType(strings.ToUpper(strings.TrimSpace(rawType)))
	}

	requests, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, &models.Pagination{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: len(requests),
	})
}

// Get godoc
// @Summary Get change request detail
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Resolve godoc
// @Summary Resolve a change request (supervisor)
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param payload body dto.ResolveChangeRequestRequest true "Resolution"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/resolve [post]
func (h *ChangeRequestHandler) Resolve(c *gin.Context) {
	var req dto.ResolveChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolution payload"))
		return
	}
	request, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
