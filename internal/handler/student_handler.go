package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/service"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

// StudentHandler handles enrollment endpoints for students.
type StudentHandler struct {
	courses *service.CourseService
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(courses *service.CourseService) *StudentHandler {
	return &StudentHandler{courses: courses}
}

// JoinClass godoc
// @Summary Join a classroom by code
// @Description Joining a class already joined returns the existing enrollment
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.JoinClassRequest true "Join payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/classes/join [post]
func (h *StudentHandler) JoinClass(c *gin.Context) {
	student := accountFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.JoinClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	enrollment, err := h.courses.JoinClass(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListEnrollments godoc
// @Summary List own enrollments
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/enrollments [get]
func (h *StudentHandler) ListEnrollments(c *gin.Context) {
	student := accountFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.courses.ListEnrollments(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}
