package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-gateway/internal/middleware"
	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/remote"
	"github.com/noah-isme/course-gateway/internal/service"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// remoteStub answers the calls these tests make; anything else panics on the nil embedded interface.
type remoteStub struct {
	service.RemoteAPI
	profile   models.ProfessorProfile
	toggleErr error
	cart      models.Cart
	courses   []models.Course
	calls     []string
}

func (r *remoteStub) GetCourse(ctx context.Context, courseID string) (models.Course, error) {
	r.calls = append(r.calls, "GetCourse")
	return models.Course{}, appErrors.RemoteRejected(http.StatusNotFound, "course not found", nil)
}

func (r *remoteStub) ToggleVisibility(ctx context.Context, courseID string) (remote.VisibilityResult, error) {
	r.calls = append(r.calls, "ToggleVisibility")
	if r.toggleErr != nil {
		return remote.VisibilityResult{}, r.toggleErr
	}
	return remote.VisibilityResult{Visibility: models.VisibilityPublic, Status: models.CourseStatusPublished}, nil
}

func (r *remoteStub) GetProfile(ctx context.Context, userID string) (models.ProfessorProfile, error) {
	r.calls = append(r.calls, "GetProfile")
	profile := r.profile
	profile.UserID = userID
	if profile.ApprovalStatus == "" {
		profile.ApprovalStatus = models.ApprovalNotSubmitted
	}
	return profile, nil
}

func (r *remoteStub) GetCart(ctx context.Context) (models.Cart, error) {
	r.calls = append(r.calls, "GetCart")
	return r.cart, nil
}

func (r *remoteStub) ListPendingProfiles(ctx context.Context) ([]models.ProfessorProfile, error) {
	r.calls = append(r.calls, "ListPendingProfiles")
	return nil, nil
}

func (r *remoteStub) ListPendingCourses(ctx context.Context) ([]models.Course, error) {
	r.calls = append(r.calls, "ListPendingCourses")
	return r.courses, nil
}

type auditStub struct {
	filter models.AuditFilter
	logs   []models.AuditLog
}

func (a *auditStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	a.filter = filter
	return a.logs, nil
}

type fixture struct {
	remote   *remoteStub
	manager  *service.SessionManager
	session  *service.Session
	recorder *httptest.ResponseRecorder
}

func newFixture(role models.UserRole) *fixture {
	gin.SetMode(gin.TestMode)
	stub := &remoteStub{}
	manager := service.NewSessionManager(service.SessionDeps{Remote: stub}, 0)
	session := manager.Open(&models.JWTClaims{UserID: "u1", Role: role})
	return &fixture{remote: stub, manager: manager, session: session}
}

func (f *fixture) context(method, path string, body interface{}, params ...gin.Param) *gin.Context {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	f.recorder = httptest.NewRecorder()
	c, _ := gin.CreateTestContext(f.recorder)
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: f.session.UserID, Role: f.session.Role})
	c.Set(middleware.ContextSessionKey, f.session)
	return c
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) body(t *testing.T) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(f.recorder.Body.Bytes(), &out))
	return out
}

func idParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}

func TestToggleVisibilityHandler(t *testing.T) {
	f := newFixture(models.RoleTeacher)
	f.session.Courses.Put(models.Course{ID: "c1", OwnerID: "u1", Status: models.CourseStatusPublished, Visibility: models.VisibilityPrivate})

	NewCourseHandler().ToggleVisibility(f.context(http.MethodPatch, "/teacher/courses/c1/visibility", nil, idParam("c1")))
	require.Equal(t, http.StatusOK, f.recorder.Code)

	var course models.Course
	require.NoError(t, json.Unmarshal(f.body(t).Data, &course))
	assert.Equal(t, models.VisibilityPublic, course.Visibility)
}

func TestToggleVisibilityHandlerRefusesDraft(t *testing.T) {
	f := newFixture(models.RoleTeacher)
	f.session.Courses.Put(models.Course{ID: "c1", OwnerID: "u1", Status: models.CourseStatusDraft})

	NewCourseHandler().ToggleVisibility(f.context(http.MethodPatch, "/teacher/courses/c1/visibility", nil, idParam("c1")))
	require.Equal(t, http.StatusUnprocessableEntity, f.recorder.Code)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, f.body(t).Error.Code)
	assert.NotContains(t, f.remote.calls, "ToggleVisibility")
}

func TestToggleVisibilityHandlerKeepsServerMessage(t *testing.T) {
	f := newFixture(models.RoleTeacher)
	f.session.Courses.Put(models.Course{ID: "c1", OwnerID: "u1", Status: models.CourseStatusPublished, Visibility: models.VisibilityPrivate})
	f.remote.toggleErr = appErrors.RemoteRejected(http.StatusForbidden, "course is locked by an administrator", nil)

	NewCourseHandler().ToggleVisibility(f.context(http.MethodPatch, "/teacher/courses/c1/visibility", nil, idParam("c1")))
	require.Equal(t, http.StatusForbidden, f.recorder.Code)
	body := f.body(t)
	assert.Equal(t, appErrors.ErrRemoteRejected.Code, body.Error.Code)
	assert.Equal(t, "course is locked by an administrator", body.Error.Message)

	course, err := f.session.Courses.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPrivate, course.Visibility)
}

func TestCreateCourseHandler(t *testing.T) {
	f := newFixture(models.RoleStudent)

	NewCourseHandler().Create(f.context(http.MethodPost, "/teacher/courses", `{"title":`))
	assert.Equal(t, http.StatusBadRequest, f.recorder.Code)

	NewCourseHandler().Create(f.context(http.MethodPost, "/teacher/courses", map[string]interface{}{
		"title": "Intro to SQL", "price": "15.00", "category": "data", "difficulty": "BASICO",
	}))
	assert.Equal(t, http.StatusForbidden, f.recorder.Code)
}

func TestProfileHandlers(t *testing.T) {
	f := newFixture(models.RoleStudent)
	f.remote.profile = models.ProfessorProfile{ApprovalStatus: models.ApprovalPending}

	h := NewProfileHandler()
	h.CanCreateCourses(f.context(http.MethodGet, "/professors/me/can-create-courses", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	assert.JSONEq(t, `{"allowed":false,"approvalStatus":"pending"}`, string(f.body(t).Data))

	h.Submit(f.context(http.MethodPost, "/professors/profile", map[string]string{
		"fullName": "Ada Lovelace", "specialty": "Mathematics", "certificateUrl": "https://certs.example.com/ada.pdf",
	}))
	require.Equal(t, http.StatusUnprocessableEntity, f.recorder.Code)
	assert.Equal(t, "already under review", f.body(t).Error.Message)
}

func TestCartHandlers(t *testing.T) {
	f := newFixture(models.RoleStudent)
	f.remote.cart = models.Cart{Items: []models.CartItem{
		{ID: "i1", CourseID: "c1", Price: decimal.NewFromInt(10)},
		{ID: "i2", CourseID: "c2", Price: decimal.RequireFromString("5.5")},
	}}

	h := NewCartHandler()
	h.Get(f.context(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	var view struct {
		UserID string `json:"userId"`
		Total  string `json:"total"`
	}
	require.NoError(t, json.Unmarshal(f.body(t).Data, &view))
	assert.Equal(t, "u1", view.UserID)
	assert.Equal(t, "15.5", view.Total)

	h.RemoveItem(f.context(http.MethodDelete, "/cart/items/zzz", nil, idParam("zzz")))
	assert.Equal(t, http.StatusNotFound, f.recorder.Code)
}

func TestModerationHandlers(t *testing.T) {
	f := newFixture(models.RoleAdmin)
	f.remote.courses = []models.Course{{ID: "c1", Status: models.CourseStatusDraft}}
	audit := &auditStub{logs: []models.AuditLog{{ID: "a1", Action: models.AuditActionCourseApprove}}}
	h := NewModerationHandler(audit)

	h.Pending(f.context(http.MethodGet, "/admin/pending", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	var queues struct {
		Profiles []models.ProfessorProfile `json:"profiles"`
		Courses  []models.Course           `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(f.body(t).Data, &queues))
	assert.Empty(t, queues.Profiles)
	require.Len(t, queues.Courses, 1)

	h.RejectCourse(f.context(http.MethodPost, "/admin/courses/c1/reject", map[string]string{"reason": ""}, idParam("c1")))
	require.Equal(t, http.StatusBadRequest, f.recorder.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, f.body(t).Error.Code)

	h.AuditLogs(f.context(http.MethodGet, "/admin/audit-logs?action=COURSE_APPROVE&limit=10", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	assert.Equal(t, "COURSE_APPROVE", audit.filter.Action)
	assert.Equal(t, 10, audit.filter.Limit)
}

func TestSessionHandlers(t *testing.T) {
	f := newFixture(models.RoleTeacher)
	h := NewSessionHandler(f.manager, nil)

	h.Info(f.context(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	var info struct {
		ID       string        `json:"id"`
		InFlight []interface{} `json:"inFlight"`
	}
	require.NoError(t, json.Unmarshal(f.body(t).Data, &info))
	assert.Equal(t, f.session.ID, info.ID)
	assert.Empty(t, info.InFlight)

	h.Notifications(f.context(http.MethodGet, "/session/notifications", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	assert.JSONEq(t, `[]`, string(f.body(t).Data))

	c := f.context(http.MethodDelete, "/session", nil)
	h.End(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, f.recorder.Code)
	assert.Equal(t, 0, f.manager.Count())
}

func TestHandlersRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/cart", nil)

	NewCartHandler().Get(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(models.RoleStudent)
	NewMetricsHandler(service.NewMetricsService(), f.manager).Health(f.context(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, f.recorder.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, f.recorder.Body.String())
}
