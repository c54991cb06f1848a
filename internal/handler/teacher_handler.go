package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/service"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

// TeacherHandler handles course and classroom endpoints for teachers.
type TeacherHandler struct {
	courses *service.CourseService
}

// NewTeacherHandler creates a new teacher handler.
func NewTeacherHandler(courses *service.CourseService) *TeacherHandler {
	return &TeacherHandler{courses: courses}
}

// CreateCourse godoc
// @Summary Create a course
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/courses [post]
func (h *TeacherHandler) CreateCourse(c *gin.Context) {
	teacher := accountFromContext(c)
	if teacher == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.courses.CreateCourse(c.Request.Context(), teacher.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, course)
}

// ListCourses godoc
// @Summary List own courses
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teacher/courses [get]
func (h *TeacherHandler) ListCourses(c *gin.Context) {
	teacher := accountFromContext(c)
	if teacher == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.courses.ListCourses(c.Request.Context(), teacher.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, nil)
}

// CreateClass godoc
// @Summary Create a classroom with a join code
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateClassRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/classes [post]
func (h *TeacherHandler) CreateClass(c *gin.Context) {
	teacher := accountFromContext(c)
	if teacher == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classroom payload"))
		return
	}

	classroom, err := h.courses.CreateClass(c.Request.Context(), teacher.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, classroom)
}

// ListClasses godoc
// @Summary List own classrooms
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teacher/classes [get]
func (h *TeacherHandler) ListClasses(c *gin.Context) {
	teacher := accountFromContext(c)
	if teacher == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.courses.ListClasses(c.Request.Context(), teacher.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, classes, nil)
}

// UpdateClass godoc
// @Summary Update a classroom
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param payload body models.UpdateClassRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teacher/classes/{id} [put]
func (h *TeacherHandler) UpdateClass(c *gin.Context) {
	teacher := accountFromContext(c)
	if teacher == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	classroom, err := h.courses.UpdateClass(c.Request.Context(), teacher.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, classroom, nil)
}

// RegenerateJoinCode godoc
// @Summary Rotate a classroom's join code
// @Description The previous code stops working immediately
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teacher/classes/{id}/join-code [post]
func (h *TeacherHandler) RegenerateJoinCode(c *gin.Context) {
	teacher := accountFromContext(c)
	if teacher == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classroom, err := h.courses.RegenerateJoinCode(c.Request.Context(), teacher.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, classroom, nil)
}
