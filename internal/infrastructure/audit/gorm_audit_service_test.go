package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clusterintranet/authgate/internal/domain/models"
	"github.com/clusterintranet/authgate/pkg/constants"
	"github.com/clusterintranet/authgate/pkg/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestGormAuditService_Record(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	svc, err := NewGormAuditService(db, logger.NewNoopLogger())
	require.NoError(t, err)

	svc.Record(ctx, constants.AuditEventLoginSuccess, "alice@example.com", "203.0.113.7", "login ok")
	svc.Record(ctx, constants.AuditEventLoginFailure, "bob@example.com", "203.0.113.8", "bad password")

	var events []models.AuditEvent
	require.NoError(t, db.Order("timestamp asc").Find(&events).Error)
	require.Len(t, events, 2)

	assert.Equal(t, constants.AuditEventLoginSuccess, events[0].EventType)
	assert.Equal(t, "alice@example.com", events[0].Subject)
	assert.Equal(t, "203.0.113.7", events[0].ClientIP)
	assert.NotZero(t, events[0].EventID)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, constants.AuditEventLoginFailure, events[1].EventType)
}

func TestGormAuditService_FilterByType(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	svc, err := NewGormAuditService(db, logger.NewNoopLogger())
	require.NoError(t, err)

	svc.Record(ctx, constants.AuditEventTokenRevoked, "alice@example.com", "", "logout")
	svc.Record(ctx, constants.AuditEventTokenRejected, "", "203.0.113.9", "invalid signature")
	svc.Record(ctx, constants.AuditEventTokenRevoked, "bob@example.com", "", "logout")

	var count int64
	require.NoError(t, db.Model(&models.AuditEvent{}).
		Where("event_type = ?", constants.AuditEventTokenRevoked).
		Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
