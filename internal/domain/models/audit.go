package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clusterintranet/authgate/pkg/constants"
)

// AuditEvent represents a single security audit trail entry.
type AuditEvent struct {
	EventID   uuid.UUID                `gorm:"type:text;primaryKey"`
	EventType constants.AuditEventType `gorm:"index;not null"`
	Subject   string                   `gorm:"index"`
	ClientIP  string
	Detail    string
	Timestamp time.Time `gorm:"index;not null"`
}

// NewAuditEvent creates a new audit event stamped with the current time.
func NewAuditEvent(eventType constants.AuditEventType, subject, clientIP, detail string) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Subject:   subject,
		ClientIP:  clientIP,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}
