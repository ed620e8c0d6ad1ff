// Package workflow holds the moderation rules for professor profiles and
// courses. Everything here is pure: callers consult it before touching a
// store or the network, so a refused action never costs a round-trip.
package workflow

import (
	"fmt"
	"strings"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// Action is something an actor asks to do to a profile or course.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionResubmit Action = "resubmit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
)

// Command is an action attempted by an actor.
type Command struct {
	Action Action
	Role   models.UserRole
	Reason string
}

// rule is one legal edge of a state machine.
type rule[S comparable] struct {
	to    S
	roles []models.UserRole // nil means any authenticated role
}

func (r rule[S]) allows(role models.UserRole) bool {
	if r.roles == nil {
		return role.Valid()
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var adminOnly = []models.UserRole{models.RoleAdmin}

// actionRoles names who may ever perform an action, independent of state.
var profileActionRoles = map[Action][]models.UserRole{
	ActionApprove: adminOnly,
	ActionReject:  adminOnly,
}

var courseActionRoles = map[Action][]models.UserRole{
	ActionApprove:  adminOnly,
	ActionReject:   adminOnly,
	ActionResubmit: {models.RoleTeacher},
}

var profileTransitions = map[models.ApprovalStatus]map[Action]rule[models.ApprovalStatus]{
	models.ApprovalNotSubmitted: {
		ActionSubmit:   {to: models.ApprovalPending},
		ActionResubmit: {to: models.ApprovalPending},
	},
	models.ApprovalPending: {
		ActionApprove: {to: models.ApprovalApproved, roles: adminOnly},
		ActionReject:  {to: models.ApprovalRejected, roles: adminOnly},
	},
	models.ApprovalRejected: {
		ActionSubmit:   {to: models.ApprovalPending},
		ActionResubmit: {to: models.ApprovalPending},
	},
	models.ApprovalApproved: {},
}

var courseTransitions = map[models.CourseStatus]map[Action]rule[models.CourseStatus]{
	models.CourseStatusDraft: {
		ActionApprove:  {to: models.CourseStatusPublished, roles: adminOnly},
		ActionReject:   {to: models.CourseStatusRejected, roles: adminOnly},
		ActionResubmit: {to: models.CourseStatusDraft, roles: []models.UserRole{models.RoleTeacher}},
	},
	models.CourseStatusPublished: {
		ActionResubmit: {to: models.CourseStatusDraft, roles: []models.UserRole{models.RoleTeacher}},
	},
	models.CourseStatusRejected: {
		ActionResubmit: {to: models.CourseStatusDraft, roles: []models.UserRole{models.RoleTeacher}},
	},
}

// Messages shown when a profile action does not fit the current status.
const (
	MsgAlreadyUnderReview = "already under review"
	MsgAlreadyApproved    = "profile is already approved"
	MsgProfileNotPending  = "only profiles under review can be moderated"
	MsgCourseNotInReview  = "only courses under review can be moderated"
	MsgReasonRequired     = "a rejection reason is required"
)

// TransitionProfile computes the next approval status of a professor profile.
func TransitionProfile(current models.ApprovalStatus, cmd Command) (models.ApprovalStatus, error) {
	if err := guardRole(profileActionRoles, cmd); err != nil {
		return current, err
	}
	edges, ok := profileTransitions[current]
	if !ok {
		return current, appErrors.Illegal(fmt.Sprintf("unknown profile status %q", current))
	}
	next, ok := edges[cmd.Action]
	if !ok {
		return current, appErrors.Illegal(profileRefusal(current, cmd.Action))
	}
	if !next.allows(cmd.Role) {
		return current, appErrors.Illegal(fmt.Sprintf("role %s cannot %s a profile", cmd.Role, cmd.Action))
	}
	if cmd.Action == ActionReject && strings.TrimSpace(cmd.Reason) == "" {
		return current, appErrors.Clone(appErrors.ErrValidation, MsgReasonRequired)
	}
	return next.to, nil
}

// TransitionCourse computes the next lifecycle status of a course.
func TransitionCourse(current models.CourseStatus, cmd Command) (models.CourseStatus, error) {
	if err := guardRole(courseActionRoles, cmd); err != nil {
		return current, err
	}
	edges, ok := courseTransitions[current]
	if !ok {
		return current, appErrors.Illegal(fmt.Sprintf("unknown course status %q", current))
	}
	next, ok := edges[cmd.Action]
	if !ok {
		return current, appErrors.Illegal(courseRefusal(current, cmd.Action))
	}
	if !next.allows(cmd.Role) {
		return current, appErrors.Illegal(fmt.Sprintf("role %s cannot %s a course", cmd.Role, cmd.Action))
	}
	if cmd.Action == ActionReject && strings.TrimSpace(cmd.Reason) == "" {
		return current, appErrors.Clone(appErrors.ErrValidation, MsgReasonRequired)
	}
	return next.to, nil
}

// CanResubmitProfile reports whether a (re)submission is accepted from the given status.
func CanResubmitProfile(current models.ApprovalStatus) bool {
	_, err := TransitionProfile(current, Command{Action: ActionResubmit, Role: models.RoleStudent})
	return err == nil
}

func guardRole(table map[Action][]models.UserRole, cmd Command) error {
	if !cmd.Role.Valid() {
		return appErrors.Illegal(fmt.Sprintf("unknown role %q", cmd.Role))
	}
	roles, ok := table[cmd.Action]
	if !ok {
		return nil
	}
	for _, role := range roles {
		if role == cmd.Role {
			return nil
		}
	}
	return appErrors.Illegal(fmt.Sprintf("role %s cannot %s", cmd.Role, cmd.Action))
}

func profileRefusal(current models.ApprovalStatus, action Action) string {
	switch {
	case current == models.ApprovalPending && (action == ActionSubmit || action == ActionResubmit):
		return MsgAlreadyUnderReview
	case current == models.ApprovalApproved:
		return MsgAlreadyApproved
	case action == ActionApprove || action == ActionReject:
		return MsgProfileNotPending
	}
	return fmt.Sprintf("cannot %s a %s profile", action, current)
}

func courseRefusal(current models.CourseStatus, action Action) string {
	if action == ActionApprove || action == ActionReject {
		return MsgCourseNotInReview
	}
	return fmt.Sprintf("cannot %s a %s course", action, current)
}
