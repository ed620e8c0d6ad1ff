package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/internal/remote"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// fakeRemote is an in-memory marketplace API.
type fakeRemote struct {
	mu       sync.Mutex
	calls    map[string]int
	courses  map[string]models.Course
	profiles map[string]models.ProfessorProfile
	cart     models.Cart

	// gate, when set, holds every ToggleVisibility call until it receives.
	gate            chan struct{}
	started         chan struct{}
	active          int32
	maxActive       int32
	toggleErr       error
	forceVisibility models.Visibility
	decisionErr     error
	blankDecision   bool
	submitErr       error
	removeErr       error
	cartOverride    *models.Cart
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls:    make(map[string]int),
		courses:  make(map[string]models.Course),
		profiles: make(map[string]models.ProfessorProfile),
	}
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeRemote) GetCourse(ctx context.Context, courseID string) (models.Course, error) {
	f.hit("GetCourse")
	f.mu.Lock()
	defer f.mu.Unlock()
	course, ok := f.courses[courseID]
	if !ok {
		return models.Course{}, appErrors.RemoteRejected(404, "course not found", nil)
	}
	return course, nil
}

func (f *fakeRemote) ToggleVisibility(ctx context.Context, courseID string) (remote.VisibilityResult, error) {
	f.hit("ToggleVisibility")
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.maxActive)
		if n <= peak || atomic.CompareAndSwapInt32(&f.maxActive, peak, n) {
			break
		}
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return remote.VisibilityResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return remote.VisibilityResult{}, f.toggleErr
	}
	course := f.courses[courseID]
	course.Visibility = course.Visibility.Toggle()
	if f.forceVisibility != models.VisibilityUnset {
		course.Visibility = f.forceVisibility
	}
	f.courses[courseID] = course
	return remote.VisibilityResult{Visibility: course.Visibility, Status: course.Status}, nil
}

func (f *fakeRemote) CreateCourse(ctx context.Context, in models.NewCourse) (models.Course, error) {
	f.hit("CreateCourse")
	f.mu.Lock()
	defer f.mu.Unlock()
	course := models.Course{
		ID:         "course-new",
		Title:      in.Title,
		Price:      in.Price,
		Category:   in.Category,
		Difficulty: in.Difficulty,
		Status:     models.CourseStatusDraft,
		UpdatedAt:  time.Now().UTC(),
	}
	f.courses[course.ID] = course
	return course, nil
}

func (f *fakeRemote) ListTeacherCourses(ctx context.Context) ([]models.Course, error) {
	f.hit("ListTeacherCourses")
	f.mu.Lock()
	defer f.mu.Unlock()
	courses := make([]models.Course, 0, len(f.courses))
	for _, c := range f.courses {
		courses = append(courses, c)
	}
	return courses, nil
}

func (f *fakeRemote) ResubmitCourse(ctx context.Context, courseID string) (remote.CourseDecision, error) {
	f.hit("ResubmitCourse")
	return f.setCourseStatus(courseID, models.CourseStatusDraft, "")
}

func (f *fakeRemote) setCourseStatus(courseID string, status models.CourseStatus, reason string) (remote.CourseDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decisionErr != nil {
		return remote.CourseDecision{}, f.decisionErr
	}
	course := f.courses[courseID]
	course.Status = status
	course.RejectionReason = reason
	f.courses[courseID] = course
	return remote.CourseDecision{Status: status, RejectionReason: reason}, nil
}

func (f *fakeRemote) SubmitProfile(ctx context.Context, submission models.ProfileSubmission) (models.ProfessorProfile, error) {
	f.hit("SubmitProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return models.ProfessorProfile{}, f.submitErr
	}
	profile := models.ProfessorProfile{
		UserID:         "teacher-1",
		FullName:       submission.FullName,
		Specialty:      submission.Specialty,
		CertificateURL: submission.CertificateURL,
		ApprovalStatus: models.ApprovalPending,
		Role:           models.RoleStudent,
	}
	f.profiles[profile.UserID] = profile
	return profile, nil
}

func (f *fakeRemote) GetProfile(ctx context.Context, userID string) (models.ProfessorProfile, error) {
	f.hit("GetProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return models.ProfessorProfile{UserID: userID, ApprovalStatus: models.ApprovalNotSubmitted}, nil
	}
	return profile, nil
}

func (f *fakeRemote) ApproveProfile(ctx context.Context, userID string) (remote.ProfileDecision, error) {
	f.hit("ApproveProfile")
	return f.setProfileStatus(userID, models.ApprovalApproved, "")
}

func (f *fakeRemote) RejectProfile(ctx context.Context, userID, reason string) (remote.ProfileDecision, error) {
	f.hit("RejectProfile")
	return f.setProfileStatus(userID, models.ApprovalRejected, reason)
}

func (f *fakeRemote) setProfileStatus(userID string, status models.ApprovalStatus, reason string) (remote.ProfileDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decisionErr != nil {
		return remote.ProfileDecision{}, f.decisionErr
	}
	if f.blankDecision {
		return remote.ProfileDecision{}, nil
	}
	profile := f.profiles[userID]
	profile.ApprovalStatus = status
	profile.RejectionReason = reason
	if status == models.ApprovalApproved {
		profile.Role = models.RoleTeacher
	}
	f.profiles[userID] = profile
	return remote.ProfileDecision{ApprovalStatus: status, RejectionReason: reason}, nil
}

func (f *fakeRemote) ListPendingProfiles(ctx context.Context) ([]models.ProfessorProfile, error) {
	f.hit("ListPendingProfiles")
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []models.ProfessorProfile
	for _, p := range f.profiles {
		if p.ApprovalStatus == models.ApprovalPending {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

func (f *fakeRemote) ApproveCourse(ctx context.Context, courseID string) (remote.CourseDecision, error) {
	f.hit("ApproveCourse")
	return f.setCourseStatus(courseID, models.CourseStatusPublished, "")
}

func (f *fakeRemote) RejectCourse(ctx context.Context, courseID, reason string) (remote.CourseDecision, error) {
	f.hit("RejectCourse")
	return f.setCourseStatus(courseID, models.CourseStatusRejected, reason)
}

func (f *fakeRemote) ListPendingCourses(ctx context.Context) ([]models.Course, error) {
	f.hit("ListPendingCourses")
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []models.Course
	for _, c := range f.courses {
		if c.Status == models.CourseStatusDraft {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

func (f *fakeRemote) GetCart(ctx context.Context) (models.Cart, error) {
	f.hit("GetCart")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, nil
}

func (f *fakeRemote) RemoveCartItem(ctx context.Context, itemID string) (models.Cart, error) {
	f.hit("RemoveCartItem")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return models.Cart{}, f.removeErr
	}
	if f.cartOverride != nil {
		return *f.cartOverride, nil
	}
	items, _ := f.cart.Without(itemID)
	f.cart.Items = items
	return f.cart, nil
}

var _ RemoteAPI = (*fakeRemote)(nil)

type notice struct {
	message string
	kind    models.NotificationKind
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) Notify(message string, kind models.NotificationKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{message: message, kind: kind})
}

func (n *recordingNotifier) last() notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return notice{}
	}
	return n.notices[len(n.notices)-1]
}

func (n *recordingNotifier) size() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (r *fakeAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditLog
	for _, log := range r.logs {
		if filter.Action == "" || filter.Action == log.Action {
			out = append(out, log)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.logs))
	for _, log := range r.logs {
		actions = append(actions, log.Action)
	}
	return actions
}

// harness wires one session's worth of services around a fake remote.
type harness struct {
	remote   *fakeRemote
	notifier *recordingNotifier
	audit    *fakeAuditRepo
	manager  *SessionManager
	session  *Session
}

func newHarness(userID string, role models.UserRole, opts ...optimistic.Option) *harness {
	h := &harness{remote: newFakeRemote(), notifier: &recordingNotifier{}, audit: &fakeAuditRepo{}}
	manager := NewSessionManager(SessionDeps{
		Remote:          h.remote,
		Audit:           NewAuditService(h.audit, nil, true),
		MutationTimeout: time.Second,
		EngineOptions:   append([]optimistic.Option{optimistic.WithNotifier(h.notifier)}, opts...),
	}, 0)
	h.manager = manager
	h.session = manager.Open(&models.JWTClaims{UserID: userID, Role: role})
	return h
}

// seedCourse puts the same course on the server and in the session store.
func (h *harness) seedCourse(course models.Course) {
	h.remote.mu.Lock()
	h.remote.courses[course.ID] = course
	h.remote.mu.Unlock()
	h.session.Courses.Put(course)
}
