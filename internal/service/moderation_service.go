package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/internal/remote"
	"github.com/noah-isme/course-gateway/internal/store"
	"github.com/noah-isme/course-gateway/internal/workflow"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// ModerationService drives the admin review queues.
type ModerationService struct {
	adminID  string
	role     models.UserRole
	courses  *store.CourseStore
	profiles *store.ProfileStore
	engine   *optimistic.Engine
	remote   moderationRemote
	cache    *CacheService
	audit    *AuditService
	logger   *zap.Logger
	toggler  visibilityToggler

	mu     sync.Mutex
	loaded bool
}

// NewModerationService wires moderation for one admin session.
func NewModerationService(adminID string, role models.UserRole, courses *store.CourseStore, profiles *store.ProfileStore, engine *optimistic.Engine, remoteAPI moderationRemote, cache *CacheService, audit *AuditService, logger *zap.Logger) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		adminID:  adminID,
		role:     role,
		courses:  courses,
		profiles: profiles,
		engine:   engine,
		remote:   remoteAPI,
		cache:    cache,
		audit:    audit,
		logger:   logger,
		toggler:  visibilityToggler{courses: courses, engine: engine, remote: remoteAPI, cache: cache, logger: logger},
	}
}

// RefreshPending refetches both queues from the server. In-flight
// reconciliations for the fetched items are superseded so they cannot
// overwrite the fresh state.
func (s *ModerationService) RefreshPending(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *ModerationService) refresh(ctx context.Context) error {
	var profiles []models.ProfessorProfile
	var courses []models.Course
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.remote.ListPendingProfiles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		courses, err = s.remote.ListPendingCourses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, profile := range profiles {
		s.engine.Supersede(profileKey(profile.UserID))
	}
	for _, course := range courses {
		s.engine.Supersede(courseKey(course.ID, fieldStatus))
		s.engine.Supersede(courseKey(course.ID, fieldVisibility))
	}
	s.profiles.LoadPending(profiles)
	s.courses.Load(courses, true)
	s.loaded = true
	s.logger.Debug("pending queues refreshed", zap.Int("profiles", len(profiles)), zap.Int("courses", len(courses)))
	return nil
}

func (s *ModerationService) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.refresh(ctx)
}

// PendingProfiles lists profiles awaiting review.
func (s *ModerationService) PendingProfiles(ctx context.Context) ([]models.ProfessorProfile, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.profiles.Pending(), nil
}

// PendingCourses lists courses awaiting review.
func (s *ModerationService) PendingCourses(ctx context.Context) ([]models.Course, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.courses.InReview(), nil
}

// ApproveProfile approves a pending profile and elevates the user to teacher.
func (s *ModerationService) ApproveProfile(ctx context.Context, userID string) (models.ProfessorProfile, error) {
	return s.decideProfile(ctx, userID, workflow.Command{Action: workflow.ActionApprove, Role: s.role}, "Profile approved", "Could not approve profile")
}

// RejectProfile rejects a pending profile with a reason.
func (s *ModerationService) RejectProfile(ctx context.Context, userID, reason string) (models.ProfessorProfile, error) {
	return s.decideProfile(ctx, userID, workflow.Command{Action: workflow.ActionReject, Role: s.role, Reason: reason}, "Profile rejected", "Could not reject profile")
}

func (s *ModerationService) decideProfile(ctx context.Context, userID string, cmd workflow.Command, success, failure string) (models.ProfessorProfile, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return models.ProfessorProfile{}, err
	}

	var previous models.ApprovalStatus
	var rejectionReason string
	read, write := s.profiles.ApprovalStatus(userID, models.ProfessorProfile{})
	_, err := optimistic.Apply(ctx, s.engine, optimistic.Mutation[models.ApprovalStatus]{
		Key:    profileKey(userID),
		Policy: optimistic.Reject,
		Read:   read,
		Write:  write,
		Propose: func(current models.ApprovalStatus) (models.ApprovalStatus, error) {
			previous = current
			return workflow.TransitionProfile(current, cmd)
		},
		Remote: func(ctx context.Context, _ models.ApprovalStatus) (models.ApprovalStatus, error) {
			var decision remote.ProfileDecision
			var err error
			if cmd.Action == workflow.ActionReject {
				decision, err = s.remote.RejectProfile(ctx, userID, cmd.Reason)
			} else {
				decision, err = s.remote.ApproveProfile(ctx, userID)
			}
			if err != nil {
				return "", err
			}
			if decision.ApprovalStatus == "" || decision.ApprovalStatus == models.ApprovalNotSubmitted {
				return "", appErrors.RemoteRejected(0, "unexpected response from the server", fmt.Errorf("profile decision reported %q", decision.ApprovalStatus))
			}
			rejectionReason = decision.RejectionReason
			return decision.ApprovalStatus, nil
		},
		Equal: optimistic.Comparable[models.ApprovalStatus](),
		OnConfirm: []func(context.Context, models.ApprovalStatus){
			func(ctx context.Context, confirmed models.ApprovalStatus) {
				if confirmed != models.ApprovalPending {
					s.profiles.Dequeue(userID)
				}
				s.profiles.Update(userID, func(p *models.ProfessorProfile) {
					switch confirmed {
					case models.ApprovalApproved:
						p.Role = models.RoleTeacher
						p.RejectionReason = ""
					case models.ApprovalRejected:
						p.RejectionReason = rejectionReason
						if p.RejectionReason == "" {
							p.RejectionReason = cmd.Reason
						}
					}
				})
				profile := s.profiles.Get(userID)
				s.cache.RefreshProfile(ctx, profile)
				s.audit.Record(ctx, s.adminID, profileAuditAction(cmd.Action), entityProfile, userID,
					map[string]interface{}{"approvalStatus": previous},
					map[string]interface{}{"approvalStatus": confirmed, "reason": profile.RejectionReason})
			},
		},
		Success: success,
		Failure: failure,
	})
	if err != nil {
		return models.ProfessorProfile{}, err
	}
	return s.profiles.Get(userID), nil
}

// ApproveCourse publishes a course under review. A course published for the
// first time starts PRIVATE unless the server says otherwise.
func (s *ModerationService) ApproveCourse(ctx context.Context, courseID string) (models.Course, error) {
	return s.decideCourse(ctx, courseID, workflow.Command{Action: workflow.ActionApprove, Role: s.role}, "Course approved", "Could not approve course")
}

// RejectCourse rejects a course under review with a reason.
func (s *ModerationService) RejectCourse(ctx context.Context, courseID, reason string) (models.Course, error) {
	return s.decideCourse(ctx, courseID, workflow.Command{Action: workflow.ActionReject, Role: s.role, Reason: reason}, "Course rejected", "Could not reject course")
}

func (s *ModerationService) decideCourse(ctx context.Context, courseID string, cmd workflow.Command, success, failure string) (models.Course, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return models.Course{}, err
	}
	if _, err := s.toggler.hydrate(ctx, courseID); err != nil {
		return models.Course{}, err
	}

	var previous models.CourseStatus
	var decision remote.CourseDecision
	read, write := s.courses.Status(courseID)
	_, err := optimistic.Apply(ctx, s.engine, optimistic.Mutation[models.CourseStatus]{
		Key:    courseKey(courseID, fieldStatus),
		Policy: optimistic.Reject,
		Read:   read,
		Write:  write,
		Propose: func(current models.CourseStatus) (models.CourseStatus, error) {
			previous = current
			return workflow.TransitionCourse(current, cmd)
		},
		Remote: func(ctx context.Context, _ models.CourseStatus) (models.CourseStatus, error) {
			var err error
			if cmd.Action == workflow.ActionReject {
				decision, err = s.remote.RejectCourse(ctx, courseID, cmd.Reason)
			} else {
				decision, err = s.remote.ApproveCourse(ctx, courseID)
			}
			return decision.Status, err
		},
		Equal: optimistic.Comparable[models.CourseStatus](),
		OnConfirm: []func(context.Context, models.CourseStatus){
			func(ctx context.Context, confirmed models.CourseStatus) {
				if confirmed != models.CourseStatusDraft {
					s.courses.Dequeue(courseID)
				}
				_ = s.courses.Update(courseID, func(c *models.Course) {
					switch confirmed {
					case models.CourseStatusPublished:
						c.RejectionReason = ""
						if decision.Visibility != models.VisibilityUnset {
							c.Visibility = decision.Visibility
						} else if c.Visibility == models.VisibilityUnset {
							c.Visibility = models.VisibilityPrivate
						}
					case models.CourseStatusRejected:
						c.RejectionReason = decision.RejectionReason
						if c.RejectionReason == "" {
							c.RejectionReason = cmd.Reason
						}
					}
				})
				course, err := s.courses.Get(courseID)
				if err != nil {
					return
				}
				s.cache.RefreshCourse(ctx, course)
				s.audit.Record(ctx, s.adminID, courseAuditAction(cmd.Action), entityCourse, courseID,
					map[string]interface{}{"status": previous},
					map[string]interface{}{"status": confirmed, "visibility": course.Visibility, "reason": course.RejectionReason})
			},
		},
		Success: success,
		Failure: failure,
	})
	if err != nil {
		return models.Course{}, err
	}
	return s.courses.Get(courseID)
}

// ForceToggleVisibility flips the visibility of any published course.
func (s *ModerationService) ForceToggleVisibility(ctx context.Context, courseID string) (models.Course, error) {
	return s.toggler.toggle(ctx, toggleRequest{
		courseID:  courseID,
		success:   "Visibility updated",
		onConfirm: s.auditVisibility(courseID),
	})
}

// Deactivate hides a published course from students. Already private
// courses are returned untouched.
func (s *ModerationService) Deactivate(ctx context.Context, courseID string) (models.Course, error) {
	course, err := s.toggler.hydrate(ctx, courseID)
	if err != nil {
		return models.Course{}, err
	}
	if course.Status == models.CourseStatusPublished && course.Visibility == models.VisibilityPrivate {
		return course, nil
	}
	return s.toggler.toggle(ctx, toggleRequest{
		courseID:  courseID,
		want:      models.VisibilityPrivate,
		success:   "Course deactivated",
		onConfirm: s.auditVisibility(courseID),
	})
}

func (s *ModerationService) auditVisibility(courseID string) func(context.Context, models.Course, models.Course) {
	return func(ctx context.Context, before, after models.Course) {
		s.audit.Record(ctx, s.adminID, models.AuditActionVisibilityForce, entityCourse, courseID,
			map[string]interface{}{"visibility": before.Visibility},
			map[string]interface{}{"visibility": after.Visibility})
	}
}

func profileAuditAction(action workflow.Action) string {
	if action == workflow.ActionReject {
		return models.AuditActionProfileReject
	}
	return models.AuditActionProfileApprove
}

func courseAuditAction(action workflow.Action) string {
	if action == workflow.ActionReject {
		return models.AuditActionCourseReject
	}
	return models.AuditActionCourseApprove
}
