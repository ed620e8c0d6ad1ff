package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/middleware"
	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/service"
	"github.com/noah-isme/course-gateway/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return nil
	}
	return claims
}

// sessionFromContext writes the error response itself when no session is attached.
func sessionFromContext(c *gin.Context) (*service.Session, bool) {
	session, err := middleware.SessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return session, true
}

// mutationContext outlives the HTTP request: once the optimistic write is
// applied, a client hanging up must not turn into a rollback.
func mutationContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func queryBool(c *gin.Context, name string) bool {
	value, err := strconv.ParseBool(c.Query(name))
	return err == nil && value
}

func respond(c *gin.Context, status int, data interface{}) {
	response.JSON(c, status, data, middleware.ExtractMeta(c))
}
