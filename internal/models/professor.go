package models

import "time"

// ApprovalStatus tracks a professor profile through moderation.
type ApprovalStatus string

const (
	// ApprovalNotSubmitted stands for the absence of a profile.
	ApprovalNotSubmitted ApprovalStatus = "not-submitted"
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
)

// ApprovalStatuses lists every profile status.
var ApprovalStatuses = []ApprovalStatus{ApprovalNotSubmitted, ApprovalPending, ApprovalApproved, ApprovalRejected}

// ProfessorProfile is the application a user files to become a teacher.
type ProfessorProfile struct {
	UserID          string         `json:"userId"`
	FullName        string         `json:"fullName"`
	Specialty       string         `json:"specialty"`
	CertificateURL  string         `json:"certificateUrl"`
	ApprovalStatus  ApprovalStatus `json:"approvalStatus"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	Role            UserRole       `json:"role"`
	SubmittedAt     *time.Time     `json:"submittedAt,omitempty"`
}

// CanCreateCourses is true only for approved professors.
func (p ProfessorProfile) CanCreateCourses() bool {
	return p.ApprovalStatus == ApprovalApproved
}

// ProfileSubmission is the payload of a (re)submission.
type ProfileSubmission struct {
	FullName       string `json:"fullName" validate:"required,max=150"`
	Specialty      string `json:"specialty" validate:"required,max=150"`
	CertificateURL string `json:"certificateUrl" validate:"required,url"`
}
