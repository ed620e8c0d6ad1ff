package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/dto"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/response"
)

// ProfileHandler exposes the caller's professor application.
type ProfileHandler struct{}

// NewProfileHandler builds a new handler.
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// Get godoc
// @Summary Get the caller's professor profile
// @Tags Professor Profile
// @Produce json
// @Param refresh query bool false "Refetch from the marketplace"
// @Success 200 {object} response.Envelope
// @Router /professors/me [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	profile, err := session.Profile.Get(c.Request.Context(), queryBool(c, "refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// Submit godoc
// @Summary Submit or resubmit the professor application
// @Tags Professor Profile
// @Accept json
// @Produce json
// @Param payload body dto.SubmitProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /professors/profile [post]
func (h *ProfileHandler) Submit(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	profile, err := session.Profile.Submit(mutationContext(c), req.ToModel())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// CanCreateCourses godoc
// @Summary Report whether the caller may create courses
// @Tags Professor Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /professors/me/can-create-courses [get]
func (h *ProfileHandler) CanCreateCourses(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	profile, err := session.Profile.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, dto.CanCreateCoursesResponse{
		Allowed:        profile.CanCreateCourses(),
		ApprovalStatus: profile.ApprovalStatus,
	})
}
