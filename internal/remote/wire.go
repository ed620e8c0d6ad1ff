package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/course-gateway/internal/models"
)

// Course status strings as the marketplace API spells them.
const (
	wireCourseInReview  = "EN REVISION"
	wireCoursePublished = "PUBLICADO"
	wireCourseRejected  = "RECHAZADO"

	wireVisibilityPublic  = "PUBLICO"
	wireVisibilityPrivate = "PRIVADO"
)

var courseStatusFromWire = map[string]models.CourseStatus{
	wireCourseInReview:  models.CourseStatusDraft,
	wireCoursePublished: models.CourseStatusPublished,
	wireCourseRejected:  models.CourseStatusRejected,
}

var visibilityFromWire = map[string]models.Visibility{
	wireVisibilityPublic:  models.VisibilityPublic,
	wireVisibilityPrivate: models.VisibilityPrivate,
}

var approvalFromWire = map[string]models.ApprovalStatus{
	"pending":  models.ApprovalPending,
	"approved": models.ApprovalApproved,
	"rejected": models.ApprovalRejected,
}

// ParseCourseStatus maps a wire course status onto the internal enum.
func ParseCourseStatus(raw string) (models.CourseStatus, error) {
	status, ok := courseStatusFromWire[strings.TrimSpace(raw)]
	if !ok {
		return "", fmt.Errorf("unknown course status %q", raw)
	}
	return status, nil
}

// FormatCourseStatus is the inverse of ParseCourseStatus.
func FormatCourseStatus(status models.CourseStatus) (string, error) {
	for wire, s := range courseStatusFromWire {
		if s == status {
			return wire, nil
		}
	}
	return "", fmt.Errorf("course status %q has no wire form", status)
}

// ParseVisibility maps a wire visibility; an empty value means unset.
func ParseVisibility(raw string) (models.Visibility, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.VisibilityUnset, nil
	}
	v, ok := visibilityFromWire[raw]
	if !ok {
		return "", fmt.Errorf("unknown visibility %q", raw)
	}
	return v, nil
}

// FormatVisibility is the inverse of ParseVisibility.
func FormatVisibility(v models.Visibility) (string, error) {
	switch v {
	case models.VisibilityUnset:
		return "", nil
	case models.VisibilityPublic:
		return wireVisibilityPublic, nil
	case models.VisibilityPrivate:
		return wireVisibilityPrivate, nil
	}
	return "", fmt.Errorf("visibility %q has no wire form", v)
}

// ParseApprovalStatus maps a wire profile status. An empty value means the
// profile was never submitted.
func ParseApprovalStatus(raw string) (models.ApprovalStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return models.ApprovalNotSubmitted, nil
	}
	status, ok := approvalFromWire[raw]
	if !ok {
		return "", fmt.Errorf("unknown approval status %q", raw)
	}
	return status, nil
}

type wireCourse struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Difficulty      string          `json:"difficulty"`
	OwnerID         string          `json:"teacherId"`
	Status          string          `json:"status"`
	Visibility      string          `json:"visibility"`
	RejectionReason string          `json:"rejectionReason"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (w wireCourse) model() (models.Course, error) {
	status, err := ParseCourseStatus(w.Status)
	if err != nil {
		return models.Course{}, err
	}
	visibility, err := ParseVisibility(w.Visibility)
	if err != nil {
		return models.Course{}, err
	}
	return models.Course{
		ID:              w.ID,
		Title:           w.Title,
		Price:           w.Price,
		Category:        w.Category,
		Difficulty:      w.Difficulty,
		OwnerID:         w.OwnerID,
		Status:          status,
		Visibility:      visibility,
		RejectionReason: w.RejectionReason,
		UpdatedAt:       w.UpdatedAt,
	}, nil
}

type wireProfile struct {
	UserID          string     `json:"userId"`
	FullName        string     `json:"fullName"`
	Specialty       string     `json:"specialty"`
	CertificateURL  string     `json:"certificateUrl"`
	ApprovalStatus  string     `json:"approvalStatus"`
	RejectionReason string     `json:"rejectionReason"`
	Role            string     `json:"role"`
	SubmittedAt     *time.Time `json:"submittedAt"`
}

func (w wireProfile) model() (models.ProfessorProfile, error) {
	status, err := ParseApprovalStatus(w.ApprovalStatus)
	if err != nil {
		return models.ProfessorProfile{}, err
	}
	role := models.UserRole(strings.ToUpper(w.Role))
	if w.Role != "" && !role.Valid() {
		return models.ProfessorProfile{}, fmt.Errorf("unknown role %q", w.Role)
	}
	return models.ProfessorProfile{
		UserID:          w.UserID,
		FullName:        w.FullName,
		Specialty:       w.Specialty,
		CertificateURL:  w.CertificateURL,
		ApprovalStatus:  status,
		RejectionReason: w.RejectionReason,
		Role:            role,
		SubmittedAt:     w.SubmittedAt,
	}, nil
}

type wireCartItem struct {
	ID       string          `json:"id"`
	CourseID string          `json:"courseId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
}

type wireCart struct {
	UserID string         `json:"userId"`
	Items  []wireCartItem `json:"items"`
}

func (w wireCart) model() models.Cart {
	cart := models.Cart{UserID: w.UserID, Items: make([]models.CartItem, 0, len(w.Items))}
	for _, item := range w.Items {
		cart.Items = append(cart.Items, models.CartItem(item))
	}
	return cart
}

type wireStatus struct {
	Status          string `json:"status"`
	Visibility      string `json:"visibility"`
	ApprovalStatus  string `json:"approvalStatus"`
	RejectionReason string `json:"rejectionReason"`
}

type wireReason struct {
	Reason string `json:"reason"`
}

type wireError struct {
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (w wireError) text() string {
	if w.Error != nil && w.Error.Message != "" {
		return w.Error.Message
	}
	return w.Message
}
