package dto

import "github.com/noah-isme/course-gateway/internal/models"

// RejectRequest carries the reason shown to the author of a rejected item.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// PendingQueues is the admin review backlog.
type PendingQueues struct {
	Profiles []models.ProfessorProfile `json:"profiles"`
	Courses  []models.Course           `json:"courses"`
}

// AuditQuery mirrors supported audit listing filters.
type AuditQuery struct {
	Resource   string `form:"resource"`
	ResourceID string `form:"resourceId"`
	Action     string `form:"action"`
	Limit      int    `form:"limit"`
}

// ToFilter converts the query into a repository filter.
func (q AuditQuery) ToFilter() models.AuditFilter {
	return models.AuditFilter{
		Resource:   q.Resource,
		ResourceID: q.ResourceID,
		Action:     q.Action,
		Limit:      q.Limit,
	}
}
