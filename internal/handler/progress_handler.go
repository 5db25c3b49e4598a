package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitlearn/student-portal-api/internal/service"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
	"github.com/orbitlearn/student-portal-api/pkg/response"
)

// ProgressHandler serves the attendance progress payload and its exports.
type ProgressHandler struct {
	service *service.ProgressService
}

// NewProgressHandler creates a new handler.
func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Summary returns the current student's progress payload.
func (h *ProgressHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Report streams the progress summary as a CSV or PDF download.
func (h *ProgressHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Report(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("progress-report-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
