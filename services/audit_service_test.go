package services

import (
	"dispatch_app_go/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAuditEvent(t *testing.T) {
	db := setupTestDB(t)
	businessID := uuid.New().String()
	ctx := AuditContext{ActorID: "admin-1", ActorRole: "admin", BusinessID: businessID, IPAddress: "10.0.0.1"}

	rule := &models.AvailabilityRule{ProviderID: uuid.New().String(), DayOfWeek: 1}
	LogAuditEvent(db, ctx, models.AuditActionUpdate, "AvailabilityRule", "rule-1", "Rule changed",
		map[string]bool{"is_available": true}, rule)
	LogAuditEvent(db, ctx, models.AuditActionDelete, "AvailabilityRule", "rule-1", "Rule retired", nil, nil)
	WaitForAuditLogs()

	history, err := GetResourceAuditHistory(db, businessID, "AvailabilityRule", "rule-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	var update models.AuditLog
	for _, entry := range history {
		assert.Equal(t, "admin-1", entry.ActorID)
		assert.Equal(t, "10.0.0.1", entry.IPAddress)
		if entry.Action == models.AuditActionUpdate {
			update = entry
		} else {
			assert.Empty(t, entry.OldValues)
			assert.Empty(t, entry.NewValues)
		}
	}
	assert.JSONEq(t, `{"is_available":true}`, update.OldValues)
	assert.Contains(t, update.NewValues, `"day_of_week":1`)

	other, err := GetResourceAuditHistory(db, uuid.New().String(), "AvailabilityRule", "rule-1")
	require.NoError(t, err)
	assert.Empty(t, other, "history is scoped to the business")
}

func TestAuditLog_Immutable(t *testing.T) {
	db := setupTestDB(t)
	entry := &models.AuditLog{BusinessID: uuid.New().String(), ResourceType: "Booking", ResourceID: "b-1", Action: models.AuditActionCancel}
	require.NoError(t, db.Create(entry).Error)

	assert.Error(t, db.Model(entry).Update("description", "rewritten").Error)
	assert.Error(t, db.Delete(entry).Error)
}

func TestGetBusinessAuditLogs(t *testing.T) {
	db := setupTestDB(t)
	businessID := uuid.New().String()
	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		action := models.AuditActionAssign
		actor := "admin-1"
		if i%3 == 0 {
			action = models.AuditActionCancel
			actor = "admin-2"
		}
		require.NoError(t, db.Create(&models.AuditLog{
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
			ActorID:      actor,
			BusinessID:   businessID,
			ResourceType: "Booking",
			ResourceID:   uuid.New().String(),
			Action:       action,
		}).Error)
	}
	require.NoError(t, db.Create(&models.AuditLog{
		BusinessID: uuid.New().String(), ResourceType: "Booking", ResourceID: "x", Action: models.AuditActionAssign,
	}).Error)

	t.Run("paginates newest first", func(t *testing.T) {
		logs, total, err := GetBusinessAuditLogs(db, businessID, AuditLogFilters{}, 1, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 30, total)
		assert.Len(t, logs, 25)
		assert.True(t, logs[0].CreatedAt.After(logs[1].CreatedAt))

		logs, _, err = GetBusinessAuditLogs(db, businessID, AuditLogFilters{}, 2, 25)
		require.NoError(t, err)
		assert.Len(t, logs, 5)
	})

	t.Run("filters", func(t *testing.T) {
		_, total, err := GetBusinessAuditLogs(db, businessID, AuditLogFilters{Action: string(models.AuditActionCancel)}, 1, 25)
		require.NoError(t, err)
		assert.EqualValues(t, 10, total)

		_, total, err = GetBusinessAuditLogs(db, businessID, AuditLogFilters{ActorID: "admin-1"}, 1, 25)
		require.NoError(t, err)
		assert.EqualValues(t, 20, total)

		_, total, err = GetBusinessAuditLogs(db, businessID, AuditLogFilters{
			DateFrom: base.Add(10 * time.Hour),
			DateTo:   base.Add(19 * time.Hour),
		}, 1, 25)
		require.NoError(t, err)
		assert.EqualValues(t, 10, total)
	})
}
