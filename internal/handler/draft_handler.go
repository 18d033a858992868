package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
	"github.com/accessdesk/access-api/pkg/response"
)

type draftService interface {
	Start(ctx context.Context, ownerEID string, req dto.StartDraftRequest) (*dto.DraftResponse, error)
	Get(ctx context.Context, ownerEID string) (*dto.DraftResponse, error)
	Update(ctx context.Context, ownerEID string, req dto.UpdateDraftRequest) (*dto.DraftResponse, error)
	SetPrereqStatus(ctx context.Context, ownerEID string, req dto.SetPrereqStatusRequest) (*dto.DraftResponse, error)
	Autofill(ctx context.Context, ownerEID string) (*dto.DraftResponse, error)
	Step(ctx context.Context, ownerEID string, req dto.StepRequest) (*dto.DraftResponse, error)
	AddAttachment(ctx context.Context, ownerEID string, attachment models.FileAttachment) (*dto.AttachmentResponse, error)
	Cancel(ctx context.Context, ownerEID string) error
	Submit(ctx context.Context, ownerEID string, meta models.LoginRequest) (*dto.SubmitDraftResponse, error)
}

// DraftHandler exposes the request wizard endpoints.
type DraftHandler struct {
	service      draftService
	maxFileBytes int64
	allowedMIMEs map[string]struct{}
}

// NewDraftHandler builds a new handler.
func NewDraftHandler(service draftService, maxFileBytes int64, allowedMIMEs []string) *DraftHandler {
	allowed := make(map[string]struct{}, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[m] = struct{}{}
	}
	if maxFileBytes <= 0 {
		maxFileBytes = 10 * 1024 * 1024
	}
	return &DraftHandler{service: service, maxFileBytes: maxFileBytes, allowedMIMEs: allowed}
}

// Start godoc
// @Summary Start a request wizard session
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.StartDraftRequest true "Selected assets"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /drafts [post]
func (h *DraftHandler) Start(c *gin.Context) {
	var req dto.StartDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}
	res, err := h.service.Start(c.Request.Context(), requesterEID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Get godoc
// @Summary Restore the active wizard session
// @Tags Drafts
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/active [get]
func (h *DraftHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), requesterEID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Update godoc
// @Summary Apply partial wizard state
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.UpdateDraftRequest true "Partial draft state"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /drafts/active [patch]
func (h *DraftHandler) Update(c *gin.Context) {
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}
	res, err := h.service.Update(c.Request.Context(), requesterEID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// SetPrereq godoc
// @Summary Toggle a prerequisite for one asset
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.SetPrereqStatusRequest true "Prerequisite status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /drafts/active/prerequisites [put]
func (h *DraftHandler) SetPrereq(c *gin.Context) {
	var req dto.SetPrereqStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid prerequisite payload"))
		return
	}
	res, err := h.service.SetPrereqStatus(c.Request.Context(), requesterEID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Autofill godoc
// @Summary Autofill prerequisites and field values
// @Tags Drafts
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /drafts/active/autofill [post]
func (h *DraftHandler) Autofill(c *gin.Context) {
	res, err := h.service.Autofill(c.Request.Context(), requesterEID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Step godoc
// @Summary Navigate the wizard
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.StepRequest true "Navigation action"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /drafts/active/step [post]
func (h *DraftHandler) Step(c *gin.Context) {
	var req dto.StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid step payload"))
		return
	}
	res, err := h.service.Step(c.Request.Context(), requesterEID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Upload godoc
// @Summary Attach evidence to the active draft
// @Tags Drafts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Evidence file"
// @Param prereq_id formData string false "Prerequisite the file is evidence for"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /drafts/active/attachments [post]
func (h *DraftHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "evidence file required"))
		return
	}
	if file.Size > h.maxFileBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size"))
		return
	}
	mimeType := file.Header.Get("Content-Type")
	if len(h.allowedMIMEs) > 0 {
		if _, ok := h.allowedMIMEs[mimeType]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file type is not allowed"))
			return
		}
	}

	res, err := h.service.AddAttachment(c.Request.Context(), requesterEID(c), models.FileAttachment{
		Name:     file.Filename,
		Size:     file.Size,
		MIMEType: mimeType,
		PrereqID: c.PostForm("prereq_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if res.Pending {
		status = http.StatusAccepted
	}
	response.JSON(c, status, res, nil)
}

// Cancel godoc
// @Summary Discard the active draft
// @Tags Drafts
// @Success 204 {object} response.Envelope
// @Router /drafts/active [delete]
func (h *DraftHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), requesterEID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit the active draft
// @Description Finalizes the wizard, producing one access request per asset
// @Tags Drafts
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /drafts/active/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	meta := models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	res, err := h.service.Submit(c.Request.Context(), requesterEID(c), meta)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
