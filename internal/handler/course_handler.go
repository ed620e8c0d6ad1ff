package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/dto"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/response"
)

// CourseHandler exposes the teacher dashboard.
type CourseHandler struct{}

// NewCourseHandler builds a new handler.
func NewCourseHandler() *CourseHandler {
	return &CourseHandler{}
}

// List godoc
// @Summary List the caller's courses
// @Tags Teacher Courses
// @Produce json
// @Param refresh query bool false "Refetch from the marketplace"
// @Success 200 {object} response.Envelope
// @Router /teacher/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	courses, err := session.Dashboard.ListCourses(c.Request.Context(), queryBool(c, "refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, courses)
}

// Create godoc
// @Summary Create a course; it starts under review
// @Tags Teacher Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := session.Dashboard.CreateCourse(mutationContext(c), req.ToModel())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, course)
}

// ToggleVisibility godoc
// @Summary Flip a published course between public and private
// @Tags Teacher Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /teacher/courses/{id}/visibility [patch]
func (h *CourseHandler) ToggleVisibility(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	course, err := session.Dashboard.ToggleVisibility(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, course)
}

// Resubmit godoc
// @Summary Send a course back to review
// @Tags Teacher Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/courses/{id}/resubmit [post]
func (h *CourseHandler) Resubmit(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	course, err := session.Dashboard.ResubmitCourse(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, course)
}
