package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

func TestSessionManagerReusesSession(t *testing.T) {
	h := newHarness("teacher-1", models.RoleTeacher)

	again := h.manager.Open(&models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	assert.Same(t, h.session, again)
	assert.Equal(t, 1, h.manager.Count())

	got, ok := h.manager.Get("teacher-1")
	require.True(t, ok)
	assert.Same(t, h.session, got)
}

func TestSessionManagerRoleChangeStartsFresh(t *testing.T) {
	h := newHarness("teacher-1", models.RoleStudent)
	h.seedCourse(publishedCourse("c1", models.VisibilityPublic))

	promoted := h.manager.Open(&models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	assert.NotSame(t, h.session, promoted)
	assert.Equal(t, models.RoleTeacher, promoted.Role)
	assert.Equal(t, 1, h.manager.Count())

	_, err := h.session.Dashboard.ToggleVisibility(context.Background(), "c1")
	assert.True(t, errors.Is(err, appErrors.ErrSessionClosed))
}

func TestSessionManagerEndDiscardsSession(t *testing.T) {
	h := newHarness("student-1", models.RoleStudent)
	seedCart(h)

	assert.True(t, h.manager.End("student-1"))
	assert.False(t, h.manager.End("student-1"))
	assert.Equal(t, 0, h.manager.Count())

	_, err := h.session.Cart.RemoveItem(context.Background(), "i1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSessionClosed))
	assert.Equal(t, 0, h.remote.count("RemoveCartItem"))
}

func TestSessionManagerSweepsIdleSessions(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := NewSessionManager(SessionDeps{Remote: newFakeRemote()}, 30*time.Minute)
	manager.now = func() time.Time { return clock }

	manager.Open(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	clock = clock.Add(20 * time.Minute)
	manager.Open(&models.JWTClaims{UserID: "u2", Role: models.RoleStudent})
	clock = clock.Add(15 * time.Minute)

	assert.Equal(t, 1, manager.Sweep())
	_, ok := manager.Get("u1")
	assert.False(t, ok)
	_, ok = manager.Get("u2")
	assert.True(t, ok)

	manager.Shutdown()
	assert.Equal(t, 0, manager.Count())
}

func TestSessionManagerWithoutIdleTimeoutKeepsSessions(t *testing.T) {
	manager := NewSessionManager(SessionDeps{Remote: newFakeRemote()}, 0)
	manager.Open(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	assert.Equal(t, 0, manager.Sweep())
	assert.Equal(t, 1, manager.Count())
}
