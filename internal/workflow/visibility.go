package workflow

import (
	"fmt"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

const (
	MsgVisibilityUnderReview = "course is under review; visibility can change once it is published"
	MsgVisibilityRejected    = "course was rejected; resubmit it for review before changing visibility"
)

// CanSetVisibility is true only for published courses and a concrete visibility.
func CanSetVisibility(status models.CourseStatus, requested models.Visibility) bool {
	return CheckVisibility(status, requested) == nil
}

// CheckVisibility explains why a visibility change is refused.
func CheckVisibility(status models.CourseStatus, requested models.Visibility) error {
	if requested != models.VisibilityPublic && requested != models.VisibilityPrivate {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visibility %q", requested))
	}
	switch status {
	case models.CourseStatusPublished:
		return nil
	case models.CourseStatusDraft:
		return appErrors.Illegal(MsgVisibilityUnderReview)
	case models.CourseStatusRejected:
		return appErrors.Illegal(MsgVisibilityRejected)
	}
	return appErrors.Illegal(fmt.Sprintf("unknown course status %q", status))
}
