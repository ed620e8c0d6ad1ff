package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/pkg/middleware/requestid"
)

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditService records confirmed moderation outcomes plus reconciliation
// anomalies. Write failures never fail the caller.
type AuditService struct {
	repo    auditRepository
	logger  *zap.Logger
	enabled bool
}

// NewAuditService constructs the service. A nil repo disables auditing.
func NewAuditService(repo auditRepository, logger *zap.Logger, enabled bool) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger, enabled: enabled}
}

// Enabled reports whether entries are persisted.
func (s *AuditService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Record stores one audit entry.
func (s *AuditService) Record(ctx context.Context, actorID, action, resource, resourceID string, oldValues, newValues interface{}) {
	if !s.Enabled() {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: marshalAudit(oldValues),
		NewValues: marshalAudit(newValues),
		RequestID: requestid.FromContext(ctx),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

// List returns recent entries.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	if !s.Enabled() {
		return []models.AuditLog{}, nil
	}
	return s.repo.List(ctx, filter)
}

// Observer audits drifted and rolled back mutations of actorID.
func (s *AuditService) Observer(actorID string) optimistic.Observer {
	return func(ctx context.Context, record models.MutationRecord) {
		switch {
		case record.Stale:
			return
		case record.State == models.MutationRolledBack:
			s.Record(ctx, actorID, models.AuditActionMutationRollback, record.Key.Entity, record.Key.ID,
				map[string]interface{}{"field": record.Key.Field, "value": record.Previous, "proposed": record.Proposed},
				map[string]interface{}{"error": record.Error, "seq": record.Seq})
		case record.Drifted:
			s.Record(ctx, actorID, models.AuditActionReconcileDrift, record.Key.Entity, record.Key.ID,
				map[string]interface{}{"field": record.Key.Field, "proposed": record.Proposed},
				map[string]interface{}{"confirmed": record.Confirmed, "seq": record.Seq})
		}
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
