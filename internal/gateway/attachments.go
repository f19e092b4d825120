package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/deviation-service/internal/auth"
	"github.com/bizmatters/deviation-service/internal/models"
	"github.com/bizmatters/deviation-service/internal/orchestration"
)

// CheckInitiation godoc
// @Summary Check initiation background
// @Description Name the background details that are still blank. No model call is made.
// @Tags initiation
// @Accept json
// @Produce json
// @Param request body models.BackgroundCheckRequest true "Background details so far"
// @Success 200 {object} models.BackgroundCheckResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /initiation/check [post]
func (h *Handler) CheckInitiation(c *gin.Context) {
	var req models.BackgroundCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	details, err := decodeRecord(req.BackgroundDetails)
	if err != nil {
		badRequest(c, "Invalid background_details: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, models.BackgroundCheckResponse{Message: orchestration.CheckBackground(details)})
}

// AnalyzeAttachments godoc
// @Summary Analyze attachments
// @Description Classify each uploaded document and title it, matching titles spoken in an optional recording
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Documents to classify"
// @Param voice_file formData file false "Recording naming the files"
// @Success 200 {object} orchestration.AttachmentAnalysis
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /attachments/analyze [post]
func (h *Handler) AnalyzeAttachments(c *gin.Context) {
	s, ok := h.openSpool(c)
	if !ok {
		return
	}
	defer s.Close(h.logger)

	docs := s.Uploads("files", "files[]", "file")
	if len(docs) == 0 {
		badRequest(c, "at least one file is required")
		return
	}
	out, err := h.service.AnalyzeAttachments(c.Request.Context(), docs, s.Upload("voice_file"), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RetitleAttachments godoc
// @Summary Retitle attachments
// @Description Rewrite attachment titles following a user instruction
// @Tags attachments
// @Accept json
// @Produce json
// @Param request body models.RetitleRequest true "Instruction and current titles"
// @Success 200 {object} models.RetitleResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /attachments/titles [post]
func (h *Handler) RetitleAttachments(c *gin.Context) {
	var req models.RetitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	titles, err := h.service.RetitleAttachments(c.Request.Context(), req.Instruction, req.ExistingTitles, auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RetitleResponse{NewTitles: titles})
}
