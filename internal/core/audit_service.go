package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/models"
)

// auditService implements the AuditService interface. It treats the
// repository as a fire-and-forget sink: every access decision must reach it
// exactly once, but an unavailable sink must never fail the request that
// produced the record.
type auditService struct {
	auditRepo db.AuditRepository
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(auditRepo db.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Log writes one audit record. Failures are warn-logged and swallowed.
func (s *auditService) Log(ctx context.Context, userID, action, resource, resourceID, details string) {
	entry := models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}
}
