package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/middleware/requestid"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second).WithToken("token-1")
}

func TestToggleVisibilityTranslatesWire(t *testing.T) {
	var gotAuth, gotRequestID, gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(requestid.Header)
		gotPath = r.URL.Path
		gotMethod = r.Method
		_ = json.NewEncoder(w).Encode(map[string]string{"visibility": "PUBLICO", "status": "PUBLICADO"})
	})

	ctx := requestid.WithValue(context.Background(), "req-9")
	result, err := client.ToggleVisibility(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, result.Visibility)
	assert.Equal(t, models.CourseStatusPublished, result.Status)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "req-9", gotRequestID)
	assert.Equal(t, "/courses/c-1/visibility", gotPath)
	assert.Equal(t, http.MethodPatch, gotMethod)
}

func TestToggleVisibilityUnknownWireValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"visibility": "OCULTO"})
	})
	_, err := client.ToggleVisibility(context.Background(), "c-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRemoteRejected.Code))
}

func TestRejectedCallKeepsServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"course is not published"}`))
	})
	_, err := client.ApproveCourse(context.Background(), "c-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRemoteRejected.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "course is not published", appErr.Message)
}

func TestNestedErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"reason too short"}}`))
	})
	_, err := client.RejectCourse(context.Background(), "c-1", "x")
	require.Error(t, err)
	assert.Equal(t, "reason too short", appErrors.FromError(err).Message)
}

func TestUpstreamOutageIsNetworkFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := client.GetCart(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNetworkFailure.Code))
}

func TestUnreachableServerIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, time.Second)
	_, err := client.ResubmitCourse(context.Background(), "c-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNetworkFailure.Code))
}

func TestRejectProfileSendsReason(t *testing.T) {
	var body wireReason
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]string{"approvalStatus": "rejected", "rejectionReason": "missing certificate"})
	})
	decision, err := client.RejectProfile(context.Background(), "u-1", "missing certificate")
	require.NoError(t, err)
	assert.Equal(t, "missing certificate", body.Reason)
	assert.Equal(t, models.ApprovalRejected, decision.ApprovalStatus)
	assert.Equal(t, "missing certificate", decision.RejectionReason)
}

func TestApproveProfileWithoutStatusIsUnexpected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	_, err := client.ApproveProfile(context.Background(), "u-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRemoteRejected.Code))
}

func TestCallerDeadlineOutlivesRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": wireCourseInReview})
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	decision, err := client.ResubmitCourse(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, decision.Status)

	_, err = client.ResubmitCourse(context.Background(), "c-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNetworkFailure.Code))
}

func TestGetProfileNotFoundIsNotSubmitted(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	profile, err := client.GetProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalNotSubmitted, profile.ApprovalStatus)
}

func TestListPendingCourses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/courses/pending", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"c-1","title":"Go","price":"19.90","teacherId":"t-1","status":"EN REVISION"}]`))
	})
	courses, err := client.ListPendingCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, models.CourseStatusDraft, courses[0].Status)
	assert.Equal(t, models.VisibilityUnset, courses[0].Visibility)
	assert.Equal(t, "19.9", courses[0].Price.String())
	assert.Equal(t, "t-1", courses[0].OwnerID)
}

func TestRemoveCartItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/items/i-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"userId":"u-1","items":[{"id":"i-2","courseId":"c-2","title":"SQL","price":10}]}`))
	})
	cart, err := client.RemoveCartItem(context.Background(), "i-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "i-2", cart.Items[0].ID)
}

func TestObserverSeesRouteTemplate(t *testing.T) {
	var route string
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"EN REVISION"}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second, WithObserver(func(method, r string, s int, d time.Duration) {
		route, status = r, s
	}))
	_, err := client.ResubmitCourse(context.Background(), "c-77")
	require.NoError(t, err)
	assert.Equal(t, "/courses/:id/resubmit", route)
	assert.Equal(t, http.StatusOK, status)
}

func TestWireRoundTrip(t *testing.T) {
	for _, status := range models.CourseStatuses {
		wire, err := FormatCourseStatus(status)
		require.NoError(t, err)
		back, err := ParseCourseStatus(wire)
		require.NoError(t, err)
		assert.Equal(t, status, back)
	}
	for _, v := range []models.Visibility{models.VisibilityPublic, models.VisibilityPrivate} {
		wire, err := FormatVisibility(v)
		require.NoError(t, err)
		back, err := ParseVisibility(wire)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
	_, err := ParseCourseStatus("PUBLISHED")
	assert.Error(t, err)
	_, err = ParseApprovalStatus("archived")
	assert.Error(t, err)
}

func TestContextTokenOverridesBoundToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	ctx := ContextWithToken(context.Background(), "token-2")
	_, err := client.GetCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-2", gotAuth)
	assert.Equal(t, "token-2", TokenFromContext(ctx))
}
