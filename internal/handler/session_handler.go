package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/dto"
	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/response"
)

type sessionEnder interface {
	End(userID string) bool
}

type notificationFeed interface {
	Drain(userID string) []models.Notification
}

// SessionHandler exposes the caller's gateway session.
type SessionHandler struct {
	sessions      sessionEnder
	notifications notificationFeed
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(sessions sessionEnder, notifications notificationFeed) *SessionHandler {
	return &SessionHandler{sessions: sessions, notifications: notifications}
}

// Info godoc
// @Summary Describe the session and its unsettled changes
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Info(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, dto.SessionInfo{
		ID:        session.ID,
		UserID:    session.UserID,
		Role:      session.Role,
		CreatedAt: session.CreatedAt,
		LastSeen:  session.LastSeen(),
		InFlight:  session.Engine.InFlight(),
	})
}

// Notifications godoc
// @Summary Drain pending notices
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session/notifications [get]
func (h *SessionHandler) Notifications(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	notices := []models.Notification{}
	if h.notifications != nil {
		notices = h.notifications.Drain(claims.UserID)
	}
	respond(c, http.StatusOK, notices)
}

// End godoc
// @Summary End the session; unsettled changes are discarded
// @Tags Session
// @Success 204
// @Router /session [delete]
func (h *SessionHandler) End(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.sessions.End(claims.UserID)
	response.NoContent(c)
}
