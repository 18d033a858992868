package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/middleware"
	"github.com/accessdesk/access-api/internal/models"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
	"github.com/accessdesk/access-api/pkg/response"
)

type catalogService interface {
	ListAssets(ctx context.Context, query dto.ListAssetsQuery) ([]models.Asset, *models.Pagination, bool, error)
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	GetProfile(ctx context.Context, eid string) (*dto.ProfileResponse, error)
	PreviewContext(ctx context.Context, query dto.ContextPreviewQuery) (*dto.ContextPreviewResponse, error)
	DatasetRoleView(ctx context.Context, assetID, eid string, overrides map[string]bool) ([]models.RoleRequirement, error)
}

// AssetHandler serves the requestable asset catalog and rule previews.
type AssetHandler struct {
	service catalogService
}

// NewAssetHandler builds a new handler.
func NewAssetHandler(service catalogService) *AssetHandler {
	return &AssetHandler{service: service}
}

// List godoc
// @Summary List requestable assets
// @Tags Catalog
// @Produce json
// @Param type query string false "Asset type filter"
// @Param search query string false "Name or description search"
// @Success 200 {object} response.Envelope
// @Router /assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	var query dto.ListAssetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid asset query"))
		return
	}
	assets, pagination, cacheHit, err := h.service.ListAssets(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, assets, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get asset by id
// @Tags Catalog
// @Produce json
// @Param id path string true "Asset id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.service.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, asset, nil)
}

// Roles godoc
// @Summary Dataset role requirements for the current user
// @Tags Catalog
// @Produce json
// @Param id path string true "Asset id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assets/{id}/roles [get]
func (h *AssetHandler) Roles(c *gin.Context) {
	roles, err := h.service.DatasetRoleView(c.Request.Context(), c.Param("id"), requesterEID(c), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// Profile godoc
// @Summary Current requester profile
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile [get]
func (h *AssetHandler) Profile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), requesterEID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// PreviewContext godoc
// @Summary Resolve rules for a request context
// @Description Returns prerequisites, form fields and the approver path for a hypothetical context
// @Tags Catalog
// @Produce json
// @Param access_type query string true "human or machine"
// @Param asset_type query string true "dataset, api, bi or warehouse"
// @Param environment query string true "dev, stage or prod"
// @Success 200 {object} response.Envelope
// @Router /context/preview [get]
func (h *AssetHandler) PreviewContext(c *gin.Context) {
	var query dto.ContextPreviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid context query"))
		return
	}
	preview, err := h.service.PreviewContext(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}
