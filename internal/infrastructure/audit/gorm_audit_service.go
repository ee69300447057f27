// Package audit implements the AuditService interface using GORM.
package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/clusterintranet/authgate/internal/domain/models"
	"github.com/clusterintranet/authgate/internal/domain/service"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// GormAuditService stores audit events in a relational database. Recording
// is best effort: a failed insert is logged but never fails the caller.
type GormAuditService struct {
	db  *gorm.DB
	log logger.Logger
}

// NewGormAuditService creates a GormAuditService and migrates its schema.
func NewGormAuditService(db *gorm.DB, log logger.Logger) (service.AuditService, error) {
	if err := db.AutoMigrate(&models.AuditEvent{}); err != nil {
		return nil, err
	}
	return &GormAuditService{db: db, log: log.WithComponent("audit")}, nil
}

// Record saves an audit event to the database.
func (s *GormAuditService) Record(ctx context.Context, event constants.AuditEventType, subject, clientIP, detail string) {
	entry := models.NewAuditEvent(event, subject, clientIP, detail)
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Error(ctx, "failed to record audit event", err,
			logger.String("event_type", string(event)),
			logger.String("subject", subject))
	}
}

// NoopAuditService discards all events. Used when auditing is disabled.
type NoopAuditService struct{}

func (NoopAuditService) Record(context.Context, constants.AuditEventType, string, string, string) {}
