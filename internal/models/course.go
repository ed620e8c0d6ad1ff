package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseStatus is the admin-controlled lifecycle gate of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusPublished CourseStatus = "PUBLISHED"
	CourseStatusRejected  CourseStatus = "REJECTED"
)

// CourseStatuses lists every lifecycle status.
var CourseStatuses = []CourseStatus{CourseStatusDraft, CourseStatusPublished, CourseStatusRejected}

// Visibility is the teacher-controlled discoverability flag of a published course.
type Visibility string

const (
	VisibilityUnset   Visibility = ""
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Toggle returns the opposite visibility. An unset flag toggles to PUBLIC
// since a freshly approved course starts PRIVATE.
func (v Visibility) Toggle() Visibility {
	if v == VisibilityPublic {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// Course is the gateway's known copy of a marketplace course.
type Course struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Difficulty      string          `json:"difficulty"`
	OwnerID         string          `json:"ownerId"`
	Status          CourseStatus    `json:"status"`
	Visibility      Visibility      `json:"visibility,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Discoverable reports whether students can currently find the course.
func (c Course) Discoverable() bool {
	return c.Status == CourseStatusPublished && c.Visibility == VisibilityPublic
}

// NewCourse holds the descriptive fields a teacher supplies at creation.
type NewCourse struct {
	Title      string          `json:"title" validate:"required,max=200"`
	Price      decimal.Decimal `json:"price"`
	Category   string          `json:"category" validate:"required,max=100"`
	Difficulty string          `json:"difficulty" validate:"required,oneof=BASICO INTERMEDIO AVANZADO"`
}
