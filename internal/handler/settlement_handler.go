package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/response"
)

type settlementService interface {
	Settle(ctx context.Context, campaignID string, actor *models.JWTClaims) (*models.SettlementResult, error)
}

type receiptOpener interface {
	Open(filename string) (*os.File, error)
}

type receiptTokenParser interface {
	Parse(token string) (resourceID, relPath string, expiresAt time.Time, err error)
}

// SettlementHandler exposes settlement endpoints.
type SettlementHandler struct {
	service  settlementService
	receipts receiptOpener
	signer   receiptTokenParser
}

// NewSettlementHandler constructs the handler.
func NewSettlementHandler(service settlementService, receipts receiptOpener, signer receiptTokenParser) *SettlementHandler {
	return &SettlementHandler{service: service, receipts: receipts, signer: signer}
}

// Settle godoc
// @Summary Settle a campaign's accumulated donations (supervisor)
// @Tags Settlements
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/settlements [post]
func (h *SettlementHandler) Settle(c *gin.Context) {
	result, err := h.service.Settle(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadReceipt godoc
// @Summary Download a settlement receipt by signed token
// @Tags Settlements
// @Produce application/pdf
// @Param token path string true "Signed receipt token"
// @Success 200 {file} binary
// @Router /receipts/{token} [get]
func (h *SettlementHandler) DownloadReceipt(c *gin.Context) {
	if h.receipts == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "receipt storage not configured"))
		return
	}
	_, relPath, _, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired receipt link"))
		return
	}
	file, err := h.receipts.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
