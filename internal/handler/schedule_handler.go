package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitlearn/student-portal-api/internal/service"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
	"github.com/orbitlearn/student-portal-api/pkg/response"
)

// ScheduleHandler serves the month calendar.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler creates a new handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Month returns the student's sessions for a month. Defaults to the current
// month when year/month are omitted.
func (h *ScheduleHandler) Month(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	now := time.Now().UTC()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be a number"))
		return
	}

	schedule, err := h.service.Month(c.Request.Context(), claims.UserID, year, month, c.Query("course"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedule, nil)
}
