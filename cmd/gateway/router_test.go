package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/remote"
	"github.com/noah-isme/course-gateway/internal/service"
	"github.com/noah-isme/course-gateway/pkg/config"
)

func testRouter(t *testing.T) (http.Handler, *service.SessionManager) {
	t.Helper()
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}
	sessions := service.NewSessionManager(service.SessionDeps{
		Remote: remote.NewClient("http://127.0.0.1:1", time.Second),
	}, 0)
	router := newRouter(cfg, zap.NewNop(), routerDeps{
		auth:          service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"}),
		sessions:      sessions,
		notifications: service.NewNotificationService(config.NotificationsConfig{}, nil, nil),
		audit:         service.NewAuditService(nil, nil, false),
		metrics:       service.NewMetricsService(),
	})
	return router, sessions
}

func bearer(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           userID,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(router http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRouterHealth(t *testing.T) {
	router, _ := testRouter(t)
	w := serve(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterRequiresToken(t *testing.T) {
	router, _ := testRouter(t)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/cart", "").Code)
}

func TestRouterKeepsAdminRoutesForAdmins(t *testing.T) {
	router, sessions := testRouter(t)
	w := serve(router, http.MethodGet, "/api/v1/admin/pending", bearer(t, "t1", models.RoleTeacher))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, sessions.Count())
}

func TestRouterSessionLifecycle(t *testing.T) {
	router, sessions := testRouter(t)
	auth := bearer(t, "s1", models.RoleStudent)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/session", auth).Code)
	require.Equal(t, 1, sessions.Count())

	require.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/api/v1/session", auth).Code)
	assert.Equal(t, 0, sessions.Count())
}
