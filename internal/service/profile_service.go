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

// ProfileService handles the session user's professor application.
type ProfileService struct {
	userID    string
	role      models.UserRole
	profiles  *store.ProfileStore
	engine    *optimistic.Engine
	remote    profileRemote
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger

	mu     sync.Mutex
	loaded bool
}

// NewProfileService wires the profile flow for one session.
func NewProfileService(userID string, role models.UserRole, profiles *store.ProfileStore, engine *optimistic.Engine, remote profileRemote, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{
		userID:    userID,
		role:      role,
		profiles:  profiles,
		engine:    engine,
		remote:    remote,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Get returns the user's profile, fetching it once per session or on refresh.
func (s *ProfileService) Get(ctx context.Context, refresh bool) (models.ProfessorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if refresh || !s.loaded {
		profile, err := s.remote.GetProfile(ctx, s.userID)
		if err != nil {
			return models.ProfessorProfile{}, err
		}
		profile.UserID = s.userID
		s.engine.Supersede(profileKey(s.userID))
		s.profiles.Put(profile)
		s.loaded = true
	}
	return s.profiles.Get(s.userID), nil
}

// Current returns the profile for an eligibility decision. A cached profile
// that is not approved is refetched once, since an admin may have decided it
// since it was loaded. Approval is final, so an approved profile is answered
// from the store.
func (s *ProfileService) Current(ctx context.Context) (models.ProfessorProfile, error) {
	s.mu.Lock()
	cached := s.loaded
	s.mu.Unlock()
	profile, err := s.Get(ctx, false)
	if err != nil {
		return models.ProfessorProfile{}, err
	}
	if !cached || profile.CanCreateCourses() || s.engine.Busy(profileKey(s.userID)) {
		return profile, nil
	}
	return s.Get(ctx, true)
}

// CanCreateCourses reports whether the user's profile is approved.
func (s *ProfileService) CanCreateCourses(ctx context.Context) (bool, error) {
	profile, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	return profile.CanCreateCourses(), nil
}

// Submit files a new application or refiles a rejected one. A profile under
// review or already approved is refused without calling the server.
func (s *ProfileService) Submit(ctx context.Context, submission models.ProfileSubmission) (models.ProfessorProfile, error) {
	if err := s.validator.Struct(submission); err != nil {
		return models.ProfessorProfile{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if _, err := s.Get(ctx, false); err != nil {
		return models.ProfessorProfile{}, err
	}

	draft := models.ProfessorProfile{
		FullName:       submission.FullName,
		Specialty:      submission.Specialty,
		CertificateURL: submission.CertificateURL,
		Role:           s.role,
	}
	var confirmedProfile models.ProfessorProfile
	read, write := s.profiles.ApprovalStatus(s.userID, draft)
	_, err := optimistic.Apply(ctx, s.engine, optimistic.Mutation[models.ApprovalStatus]{
		Key:    profileKey(s.userID),
		Policy: optimistic.Reject,
		Read:   read,
		Write:  write,
		Propose: func(current models.ApprovalStatus) (models.ApprovalStatus, error) {
			action := workflow.ActionSubmit
			if current == models.ApprovalRejected {
				action = workflow.ActionResubmit
			}
			return workflow.TransitionProfile(current, workflow.Command{Action: action, Role: s.role})
		},
		Remote: func(ctx context.Context, _ models.ApprovalStatus) (models.ApprovalStatus, error) {
			profile, err := s.remote.SubmitProfile(ctx, submission)
			if err != nil {
				return "", err
			}
			confirmedProfile = profile
			return profile.ApprovalStatus, nil
		},
		Equal: optimistic.Comparable[models.ApprovalStatus](),
		OnConfirm: []func(context.Context, models.ApprovalStatus){
			func(ctx context.Context, confirmed models.ApprovalStatus) {
				confirmedProfile.UserID = s.userID
				confirmedProfile.ApprovalStatus = confirmed
				if confirmed == models.ApprovalPending {
					confirmedProfile.RejectionReason = ""
				}
				s.profiles.Put(confirmedProfile)
				s.cache.RefreshProfile(ctx, confirmedProfile)
			},
		},
		Success: "Profile submitted for review",
		Failure: "Could not submit profile",
	})
	if err != nil {
		return models.ProfessorProfile{}, err
	}
	return s.profiles.Get(s.userID), nil
}
