package service

import (
	"context"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/remote"
)

// Mutation keys used by the orchestrators.
const (
	entityCourse  = "course"
	entityProfile = "professor_profile"
	entityCart    = "cart"

	fieldStatus     = "status"
	fieldVisibility = "visibility"
	fieldApproval   = "approvalStatus"
	fieldItems      = "items"
)

func courseKey(id, field string) models.MutationKey {
	return models.MutationKey{Entity: entityCourse, ID: id, Field: field}
}

func profileKey(userID string) models.MutationKey {
	return models.MutationKey{Entity: entityProfile, ID: userID, Field: fieldApproval}
}

func cartKey(userID string) models.MutationKey {
	return models.MutationKey{Entity: entityCart, ID: userID, Field: fieldItems}
}

type visibilityRemote interface {
	GetCourse(ctx context.Context, courseID string) (models.Course, error)
	ToggleVisibility(ctx context.Context, courseID string) (remote.VisibilityResult, error)
}

type courseRemote interface {
	visibilityRemote
	CreateCourse(ctx context.Context, course models.NewCourse) (models.Course, error)
	ListTeacherCourses(ctx context.Context) ([]models.Course, error)
	ResubmitCourse(ctx context.Context, courseID string) (remote.CourseDecision, error)
}

type profileRemote interface {
	SubmitProfile(ctx context.Context, submission models.ProfileSubmission) (models.ProfessorProfile, error)
	GetProfile(ctx context.Context, userID string) (models.ProfessorProfile, error)
}

type moderationRemote interface {
	visibilityRemote
	ApproveProfile(ctx context.Context, userID string) (remote.ProfileDecision, error)
	RejectProfile(ctx context.Context, userID, reason string) (remote.ProfileDecision, error)
	ListPendingProfiles(ctx context.Context) ([]models.ProfessorProfile, error)
	ApproveCourse(ctx context.Context, courseID string) (remote.CourseDecision, error)
	RejectCourse(ctx context.Context, courseID, reason string) (remote.CourseDecision, error)
	ListPendingCourses(ctx context.Context) ([]models.Course, error)
}

type cartRemote interface {
	GetCart(ctx context.Context) (models.Cart, error)
	RemoveCartItem(ctx context.Context, itemID string) (models.Cart, error)
}

// RemoteAPI is everything a session needs from the marketplace API.
// *remote.Client satisfies it.
type RemoteAPI interface {
	courseRemote
	profileRemote
	moderationRemote
	cartRemote
}

var _ RemoteAPI = (*remote.Client)(nil)
