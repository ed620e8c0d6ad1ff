// Package remote talks to the authoritative marketplace API. Wire strings
// are translated here and nowhere else.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
	"github.com/noah-isme/course-gateway/pkg/middleware/requestid"
)

const maxErrorBody = 4 << 10

// ObserveFunc receives one sample per remote call, labelled by route template.
type ObserveFunc func(method, route string, status int, duration time.Duration)

// ProfileDecision is the server's answer to an approve/reject of a profile.
type ProfileDecision struct {
	ApprovalStatus  models.ApprovalStatus
	RejectionReason string
}

// CourseDecision is the server's answer to a course lifecycle action.
type CourseDecision struct {
	Status          models.CourseStatus
	Visibility      models.Visibility
	RejectionReason string
}

// VisibilityResult is the server's answer to a visibility toggle. Status is
// empty when the server did not report it.
type VisibilityResult struct {
	Visibility models.Visibility
	Status     models.CourseStatus
}

// Client is an HTTP client for the marketplace API bound to one bearer token.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
	observe ObserveFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver records call latency and status.
func WithObserver(fn ObserveFunc) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient constructs a client without credentials. timeout bounds calls
// whose context carries no deadline of its own; a caller deadline, such as a
// mutation's, always governs.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type tokenKey struct{}

// ContextWithToken attaches the caller's bearer token to ctx. It takes
// precedence over a token bound with WithToken.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached to ctx, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// WithToken returns a copy of the client that forwards token on every call.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// SubmitProfile files or refiles the caller's professor application.
func (c *Client) SubmitProfile(ctx context.Context, submission models.ProfileSubmission) (models.ProfessorProfile, error) {
	var out wireProfile
	if err := c.do(ctx, http.MethodPost, "/professors/profile", "/professors/profile", submission, &out); err != nil {
		return models.ProfessorProfile{}, err
	}
	value, err := out.model()
	return translate(value, err)
}

// GetProfile fetches a professor profile; a 404 yields a not-submitted placeholder.
func (c *Client) GetProfile(ctx context.Context, userID string) (models.ProfessorProfile, error) {
	var out wireProfile
	err := c.do(ctx, http.MethodGet, "/professors/"+url.PathEscape(userID), "/professors/:id", nil, &out)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrRemoteRejected.Code && appErr.Status == http.StatusNotFound {
			return models.ProfessorProfile{UserID: userID, ApprovalStatus: models.ApprovalNotSubmitted}, nil
		}
		return models.ProfessorProfile{}, err
	}
	value, err := out.model()
	return translate(value, err)
}

// ListPendingProfiles returns the admin moderation queue of profiles.
func (c *Client) ListPendingProfiles(ctx context.Context) ([]models.ProfessorProfile, error) {
	var out []wireProfile
	if err := c.do(ctx, http.MethodGet, "/admin/professors/pending", "/admin/professors/pending", nil, &out); err != nil {
		return nil, err
	}
	profiles := make([]models.ProfessorProfile, 0, len(out))
	for _, w := range out {
		profile, err := w.model()
		if err != nil {
			return nil, unexpected(err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// ApproveProfile approves a pending professor profile.
func (c *Client) ApproveProfile(ctx context.Context, userID string) (ProfileDecision, error) {
	return c.decideProfile(ctx, "/admin/professors/"+url.PathEscape(userID)+"/approve", "/admin/professors/:id/approve", nil)
}

// RejectProfile rejects a pending professor profile with a reason.
func (c *Client) RejectProfile(ctx context.Context, userID, reason string) (ProfileDecision, error) {
	return c.decideProfile(ctx, "/admin/professors/"+url.PathEscape(userID)+"/reject", "/admin/professors/:id/reject", wireReason{Reason: reason})
}

func (c *Client) decideProfile(ctx context.Context, path, route string, body interface{}) (ProfileDecision, error) {
	var out wireStatus
	if err := c.do(ctx, http.MethodPost, path, route, body, &out); err != nil {
		return ProfileDecision{}, err
	}
	if strings.TrimSpace(out.ApprovalStatus) == "" {
		return ProfileDecision{}, unexpected(errors.New("decision carries no approval status"))
	}
	status, err := ParseApprovalStatus(out.ApprovalStatus)
	if err != nil {
		return ProfileDecision{}, unexpected(err)
	}
	return ProfileDecision{ApprovalStatus: status, RejectionReason: out.RejectionReason}, nil
}

// CreateCourse creates a course owned by the caller.
func (c *Client) CreateCourse(ctx context.Context, course models.NewCourse) (models.Course, error) {
	var out wireCourse
	if err := c.do(ctx, http.MethodPost, "/courses", "/courses", course, &out); err != nil {
		return models.Course{}, err
	}
	value, err := out.model()
	return translate(value, err)
}

// GetCourse fetches one course.
func (c *Client) GetCourse(ctx context.Context, courseID string) (models.Course, error) {
	var out wireCourse
	if err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(courseID), "/courses/:id", nil, &out); err != nil {
		return models.Course{}, err
	}
	value, err := out.model()
	return translate(value, err)
}

// ListTeacherCourses returns the caller's own courses.
func (c *Client) ListTeacherCourses(ctx context.Context) ([]models.Course, error) {
	return c.listCourses(ctx, "/teacher/courses")
}

// ListPendingCourses returns the admin review queue of courses.
func (c *Client) ListPendingCourses(ctx context.Context) ([]models.Course, error) {
	return c.listCourses(ctx, "/admin/courses/pending")
}

func (c *Client) listCourses(ctx context.Context, path string) ([]models.Course, error) {
	var out []wireCourse
	if err := c.do(ctx, http.MethodGet, path, path, nil, &out); err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(out))
	for _, w := range out {
		course, err := w.model()
		if err != nil {
			return nil, unexpected(err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// ApproveCourse publishes a course under review.
func (c *Client) ApproveCourse(ctx context.Context, courseID string) (CourseDecision, error) {
	return c.decideCourse(ctx, "/admin/courses/"+url.PathEscape(courseID)+"/approve", "/admin/courses/:id/approve", nil)
}

// RejectCourse rejects a course under review with a reason.
func (c *Client) RejectCourse(ctx context.Context, courseID, reason string) (CourseDecision, error) {
	return c.decideCourse(ctx, "/admin/courses/"+url.PathEscape(courseID)+"/reject", "/admin/courses/:id/reject", wireReason{Reason: reason})
}

// ResubmitCourse sends a course back to review.
func (c *Client) ResubmitCourse(ctx context.Context, courseID string) (CourseDecision, error) {
	return c.decideCourse(ctx, "/courses/"+url.PathEscape(courseID)+"/resubmit", "/courses/:id/resubmit", nil)
}

func (c *Client) decideCourse(ctx context.Context, path, route string, body interface{}) (CourseDecision, error) {
	var out wireStatus
	if err := c.do(ctx, http.MethodPost, path, route, body, &out); err != nil {
		return CourseDecision{}, err
	}
	status, err := ParseCourseStatus(out.Status)
	if err != nil {
		return CourseDecision{}, unexpected(err)
	}
	visibility, err := ParseVisibility(out.Visibility)
	if err != nil {
		return CourseDecision{}, unexpected(err)
	}
	return CourseDecision{Status: status, Visibility: visibility, RejectionReason: out.RejectionReason}, nil
}

// ToggleVisibility flips a course's visibility server-side. The endpoint
// takes no desired value; the result is whatever the server settled on.
func (c *Client) ToggleVisibility(ctx context.Context, courseID string) (VisibilityResult, error) {
	var out wireStatus
	if err := c.do(ctx, http.MethodPatch, "/courses/"+url.PathEscape(courseID)+"/visibility", "/courses/:id/visibility", nil, &out); err != nil {
		return VisibilityResult{}, err
	}
	visibility, err := ParseVisibility(out.Visibility)
	if err != nil {
		return VisibilityResult{}, unexpected(err)
	}
	if visibility == models.VisibilityUnset {
		return VisibilityResult{}, unexpected(errors.New("visibility missing from toggle response"))
	}
	result := VisibilityResult{Visibility: visibility}
	if out.Status != "" {
		if result.Status, err = ParseCourseStatus(out.Status); err != nil {
			return VisibilityResult{}, unexpected(err)
		}
	}
	return result, nil
}

// GetCart fetches the caller's cart.
func (c *Client) GetCart(ctx context.Context) (models.Cart, error) {
	var out wireCart
	if err := c.do(ctx, http.MethodGet, "/cart", "/cart", nil, &out); err != nil {
		return models.Cart{}, err
	}
	return out.model(), nil
}

// RemoveCartItem deletes one item and returns the resulting cart.
func (c *Client) RemoveCartItem(ctx context.Context, itemID string) (models.Cart, error) {
	var out wireCart
	if err := c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), "/cart/items/:id", nil, &out); err != nil {
		return models.Cart{}, err
	}
	return out.model(), nil
}

func (c *Client) do(ctx context.Context, method, path, route string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := TokenFromContext(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if c.observe != nil {
		c.observe(method, route, statusCode, time.Since(start))
	}
	if err != nil {
		c.logger.Warn("remote call failed", zap.String("method", method), zap.String("route", route), zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return appErrors.Wrap(err, appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, appErrors.ErrNetworkFailure.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.rejection(resp, method, route)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return unexpected(fmt.Errorf("decode %s %s: %w", method, route, err))
	}
	return nil
}

// rejection turns an error response into RemoteRejected, keeping the server's
// message. Gateway-class statuses count as the network failing.
func (c *Client) rejection(resp *http.Response, method, route string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload wireError
	_ = json.Unmarshal(raw, &payload)
	message := payload.text()

	c.logger.Info("remote rejected call",
		zap.String("method", method),
		zap.String("route", route),
		zap.Int("status", resp.StatusCode),
		zap.String("message", message),
	)

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return appErrors.Wrap(fmt.Errorf("upstream status %d", resp.StatusCode), appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, appErrors.ErrNetworkFailure.Message)
	}
	if message == "" {
		message = appErrors.ErrRemoteRejected.Message
	}
	return appErrors.RemoteRejected(resp.StatusCode, message, fmt.Errorf("%s %s: status %d", method, route, resp.StatusCode))
}

func unexpected(err error) error {
	return appErrors.RemoteRejected(0, "unexpected response from the server", err)
}

func translate[T any](value T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, unexpected(err)
	}
	return value, nil
}
