package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitlearn/student-portal-api/internal/service"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
	"github.com/orbitlearn/student-portal-api/pkg/response"
)

// CourseHandler serves the enrolled course list.
type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List returns the current student's courses with upcoming sessions.
func (h *CourseHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, nil)
}
