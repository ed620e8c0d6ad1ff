package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/dto"
	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/service"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/response"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// ModerationHandler exposes the admin review queues.
type ModerationHandler struct {
	audit auditLister
}

// NewModerationHandler builds a new handler.
func NewModerationHandler(audit auditLister) *ModerationHandler {
	return &ModerationHandler{audit: audit}
}

// Pending godoc
// @Summary List profiles and courses awaiting review
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/pending [get]
func (h *ModerationHandler) Pending(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	h.writePending(c, session)
}

// Refresh godoc
// @Summary Refetch both review queues from the marketplace
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/pending/refresh [post]
func (h *ModerationHandler) Refresh(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := session.Moderation.RefreshPending(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	h.writePending(c, session)
}

func (h *ModerationHandler) writePending(c *gin.Context, session *service.Session) {
	profiles, err := session.Moderation.PendingProfiles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, err := session.Moderation.PendingCourses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, dto.PendingQueues{Profiles: profiles, Courses: courses})
}

// ApproveProfile godoc
// @Summary Approve a professor application
// @Tags Moderation
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/professors/{id}/approve [post]
func (h *ModerationHandler) ApproveProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	profile, err := session.Moderation.ApproveProfile(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// RejectProfile godoc
// @Summary Reject a professor application
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /admin/professors/{id}/reject [post]
func (h *ModerationHandler) RejectProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	req, ok := bindReject(c)
	if !ok {
		return
	}
	profile, err := session.Moderation.RejectProfile(mutationContext(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// ApproveCourse godoc
// @Summary Publish a course under review
// @Tags Moderation
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id}/approve [post]
func (h *ModerationHandler) ApproveCourse(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	course, err := session.Moderation.ApproveCourse(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, course)
}

// RejectCourse godoc
// @Summary Reject a course under review
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id}/reject [post]
func (h *ModerationHandler) RejectCourse(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	req, ok := bindReject(c)
	if !ok {
		return
	}
	course, err := session.Moderation.RejectCourse(mutationContext(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, course)
}

// ForceToggleVisibility godoc
// @Summary Flip the visibility of any published course
// @Tags Moderation
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id}/visibility [patch]
func (h *ModerationHandler) ForceToggleVisibility(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	course, err := session.Moderation.ForceToggleVisibility(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, course)
}

// Deactivate godoc
// @Summary Hide a published course from students
// @Tags Moderation
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id}/deactivate [post]
func (h *ModerationHandler) Deactivate(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	course, err := session.Moderation.Deactivate(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, course)
}

// AuditLogs godoc
// @Summary List moderation audit entries
// @Tags Moderation
// @Produce json
// @Param resource query string false "Resource filter"
// @Param resourceId query string false "Resource ID filter"
// @Param action query string false "Action filter"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *ModerationHandler) AuditLogs(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit query"))
		return
	}
	logs, err := h.audit.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, logs)
}

func bindReject(c *gin.Context) (dto.RejectRequest, bool) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return req, false
	}
	return req, true
}
