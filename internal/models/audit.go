package models

import "time"

// AuditAction constants represent moderation outcomes worth keeping.
const (
	AuditActionProfileApprove   = "PROFILE_APPROVE"
	AuditActionProfileReject    = "PROFILE_REJECT"
	AuditActionCourseApprove    = "COURSE_APPROVE"
	AuditActionCourseReject     = "COURSE_REJECT"
	AuditActionVisibilityForce  = "VISIBILITY_FORCE"
	AuditActionReconcileDrift   = "RECONCILE_DRIFT"
	AuditActionMutationRollback = "MUTATION_ROLLBACK"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	RequestID  string    `db:"request_id" json:"requestId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// AuditFilter constrains listing queries.
type AuditFilter struct {
	Resource   string
	ResourceID string
	Action     string
	Limit      int
}
