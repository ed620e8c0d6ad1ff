package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/service"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/logger"
	"github.com/noah-isme/course-gateway/pkg/response"
)

// ContextSessionKey is the gin context key storing the caller's session.
const ContextSessionKey = "currentSession"

type sessionOpener interface {
	Open(claims *models.JWTClaims) *service.Session
}

// Session resolves the caller's session, opening one on first use. It must
// run after JWT.
func Session(sessions sessionOpener) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		session := sessions.Open(claims)
		c.Set(ContextSessionKey, session)
		c.Set(logger.SessionIDKey, session.ID)
		SetMeta(c, "session_id", session.ID)
		c.Next()
	}
}

// SessionFromContext returns the session set by Session.
func SessionFromContext(c *gin.Context) (*service.Session, error) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, appErrors.ErrUnauthorized
	}
	session, ok := value.(*service.Session)
	if !ok || session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return session, nil
}
