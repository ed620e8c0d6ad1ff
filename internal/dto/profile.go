package dto

import "github.com/noah-isme/course-gateway/internal/models"

// SubmitProfileRequest payload for filing or refiling a professor application.
type SubmitProfileRequest struct {
	FullName       string `json:"fullName"`
	Specialty      string `json:"specialty"`
	CertificateURL string `json:"certificateUrl"`
}

// ToModel converts the request into a submission.
func (r SubmitProfileRequest) ToModel() models.ProfileSubmission {
	return models.ProfileSubmission{
		FullName:       r.FullName,
		Specialty:      r.Specialty,
		CertificateURL: r.CertificateURL,
	}
}

// CanCreateCoursesResponse answers whether the caller may create courses.
type CanCreateCoursesResponse struct {
	Allowed        bool                  `json:"allowed"`
	ApprovalStatus models.ApprovalStatus `json:"approvalStatus"`
}
