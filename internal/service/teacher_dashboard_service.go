package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/internal/store"
	"github.com/noah-isme/course-gateway/internal/workflow"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// TeacherDashboardService drives a teacher's own courses.
type TeacherDashboardService struct {
	userID    string
	role      models.UserRole
	courses   *store.CourseStore
	engine    *optimistic.Engine
	remote    courseRemote
	profile   *ProfileService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	toggler   visibilityToggler

	mu     sync.Mutex
	loaded bool
}

// NewTeacherDashboardService wires the dashboard for one session.
func NewTeacherDashboardService(userID string, role models.UserRole, courses *store.CourseStore, engine *optimistic.Engine, remote courseRemote, profile *ProfileService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherDashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherDashboardService{
		userID:    userID,
		role:      role,
		courses:   courses,
		engine:    engine,
		remote:    remote,
		profile:   profile,
		cache:     cache,
		validator: validate,
		logger:    logger,
		toggler:   visibilityToggler{courses: courses, engine: engine, remote: remote, cache: cache, logger: logger},
	}
}

// ListCourses returns the teacher's courses, newest first. The first call
// and any refresh fetch the authoritative list.
func (s *TeacherDashboardService) ListCourses(ctx context.Context, refresh bool) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if refresh || !s.loaded {
		courses, err := s.remote.ListTeacherCourses(ctx)
		if err != nil {
			return nil, err
		}
		for _, course := range courses {
			s.engine.Supersede(courseKey(course.ID, fieldStatus))
			s.engine.Supersede(courseKey(course.ID, fieldVisibility))
		}
		s.courses.Load(courses, false)
		s.loaded = true
	}
	return s.courses.List(s.owns), nil
}

// CreateCourse creates a DRAFT course. Only approved professors may do so.
func (s *TeacherDashboardService) CreateCourse(ctx context.Context, in models.NewCourse) (models.Course, error) {
	if err := s.validator.Struct(in); err != nil {
		return models.Course{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if in.Price.IsNegative() {
		return models.Course{}, appErrors.Clone(appErrors.ErrValidation, "price cannot be negative")
	}
	allowed, err := s.profile.CanCreateCourses(ctx)
	if err != nil {
		return models.Course{}, err
	}
	if !allowed {
		return models.Course{}, appErrors.Clone(appErrors.ErrForbidden, "only approved professors can create courses")
	}

	course, err := s.remote.CreateCourse(ctx, in)
	if err != nil {
		return models.Course{}, err
	}
	if course.Status != models.CourseStatusDraft {
		s.logger.Warn("new course did not start under review", zap.String("course_id", course.ID), zap.String("status", string(course.Status)))
	}
	if course.OwnerID == "" {
		course.OwnerID = s.userID
	}
	s.courses.Put(course)
	s.cache.RefreshCourse(ctx, course)
	return course, nil
}

// ToggleVisibility flips PUBLIC/PRIVATE on one of the teacher's published
// courses. Rapid toggles queue behind each other; each proposal is computed
// from the state the previous one reconciled to.
func (s *TeacherDashboardService) ToggleVisibility(ctx context.Context, courseID string) (models.Course, error) {
	return s.toggler.toggle(ctx, toggleRequest{
		courseID:  courseID,
		authorize: s.authorize,
		success:   "Visibility updated",
	})
}

// ResubmitCourse sends a course back to admin review.
func (s *TeacherDashboardService) ResubmitCourse(ctx context.Context, courseID string) (models.Course, error) {
	if _, err := s.toggler.hydrate(ctx, courseID); err != nil {
		return models.Course{}, err
	}
	role, err := s.actingRole(ctx)
	if err != nil {
		return models.Course{}, err
	}
	read, write := s.courses.Status(courseID)
	_, err = optimistic.Apply(ctx, s.engine, optimistic.Mutation[models.CourseStatus]{
		Key:    courseKey(courseID, fieldStatus),
		Policy: optimistic.Reject,
		Read:   read,
		Write:  write,
		Propose: func(current models.CourseStatus) (models.CourseStatus, error) {
			course, err := s.courses.Get(courseID)
			if err != nil {
				return current, err
			}
			if err := s.authorize(course); err != nil {
				return current, err
			}
			return workflow.TransitionCourse(current, workflow.Command{Action: workflow.ActionResubmit, Role: role})
		},
		Remote: func(ctx context.Context, _ models.CourseStatus) (models.CourseStatus, error) {
			decision, err := s.remote.ResubmitCourse(ctx, courseID)
			return decision.Status, err
		},
		Equal: optimistic.Comparable[models.CourseStatus](),
		OnConfirm: []func(context.Context, models.CourseStatus){
			func(ctx context.Context, confirmed models.CourseStatus) {
				_ = s.courses.Update(courseID, func(c *models.Course) {
					if confirmed == models.CourseStatusDraft {
						c.RejectionReason = ""
					}
				})
				if course, err := s.courses.Get(courseID); err == nil {
					s.cache.RefreshCourse(ctx, course)
				}
			},
		},
		Success: "Course sent for review",
		Failure: "Could not resubmit course",
	})
	if err != nil {
		return models.Course{}, err
	}
	return s.courses.Get(courseID)
}

// actingRole is the role course commands run under. An approved professor
// keeps a student token until the next sign-in, so approval decides.
func (s *TeacherDashboardService) actingRole(ctx context.Context) (models.UserRole, error) {
	if s.role != models.RoleStudent {
		return s.role, nil
	}
	approved, err := s.profile.CanCreateCourses(ctx)
	if err != nil {
		return "", err
	}
	if approved {
		return models.RoleTeacher, nil
	}
	return s.role, nil
}

func (s *TeacherDashboardService) owns(course models.Course) bool {
	return course.OwnerID == s.userID
}

func (s *TeacherDashboardService) authorize(course models.Course) error {
	if s.role == models.RoleAdmin || s.owns(course) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
}
