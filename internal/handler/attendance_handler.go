package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitlearn/student-portal-api/internal/models"
	"github.com/orbitlearn/student-portal-api/internal/service"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
	"github.com/orbitlearn/student-portal-api/pkg/response"
)

// AttendanceHandler wires attendance endpoints to the attendance service.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Record accepts a fire-and-forget marking. The response is 202 before the
// row is written; clients sending beacons never wait on the database.
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.service.Record(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, gin.H{"status": "queued"})
}

// MarkAbsent writes an absence synchronously and returns the stored record.
func (h *AttendanceHandler) MarkAbsent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "session_id required"))
		return
	}

	record, err := h.service.MarkAbsent(c.Request.Context(), claims.UserID, req.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// History returns the student's most recent markings.
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "12"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 12
	}

	entries, err := h.service.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}
