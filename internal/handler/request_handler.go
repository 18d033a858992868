package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/service"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
	"github.com/accessdesk/access-api/pkg/response"
)

type requestQueryService interface {
	ListMine(ctx context.Context, eid string, query dto.ListRequestsQuery) ([]dto.RequestItem, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.RequestItem, error)
	Nudge(ctx context.Context, requesterEID, requestID string) (*dto.NudgeResponse, error)
}

type requestExportService interface {
	RequestHistoryCSV(ctx context.Context, eid string) ([]byte, string, error)
	Receipt(ctx context.Context, requestID string) (*service.ExportResult, error)
	OpenByToken(token string) (*os.File, error)
}

// RequestHandler serves the requester-facing request endpoints.
type RequestHandler struct {
	service requestQueryService
	exports requestExportService
}

// NewRequestHandler builds a new handler.
func NewRequestHandler(service requestQueryService, exports requestExportService) *RequestHandler {
	return &RequestHandler{service: service, exports: exports}
}

// ListMine godoc
// @Summary List my submitted requests
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	var query dto.ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request query"))
		return
	}
	items, pagination, err := h.service.ListMine(c.Request.Context(), requesterEID(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one request
// @Tags Requests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Nudge godoc
// @Summary Remind the current approver
// @Description Sends at most one reminder per request per cooldown window
// @Tags Requests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests/{id}/nudge [post]
func (h *RequestHandler) Nudge(c *gin.Context) {
	res, err := h.service.Nudge(c.Request.Context(), requesterEID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ExportCSV godoc
// @Summary Export my request history as CSV
// @Tags Requests
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Router /requests/export [get]
func (h *RequestHandler) ExportCSV(c *gin.Context) {
	payload, filename, err := h.exports.RequestHistoryCSV(c.Request.Context(), requesterEID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Receipt godoc
// @Summary Generate a PDF receipt for one request
// @Tags Requests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/receipt [post]
func (h *RequestHandler) Receipt(c *gin.Context) {
	result, err := h.exports.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a generated export by signed token
// @Tags Requests
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *RequestHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}
	file, err := h.exports.OpenByToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	c.File(file.Name())
}
