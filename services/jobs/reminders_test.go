package jobs

import (
	"dispatch_app_go/config"
	"dispatch_app_go/models"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRemindersTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestSendBookingReminders(t *testing.T) {
	db := setupRemindersTestDB(t)
	cfg := &config.Config{
		AppURL:        "http://test.com",
		EmailTestMode: true, // SendEmail logs to console instead of sending
	}

	business := models.Business{Name: "Sparkle Cleaning", Timezone: "America/New_York"}
	require.NoError(t, db.Create(&business).Error)
	provider := models.Provider{BusinessID: business.ID, Name: "Ana", Status: models.ProviderStatusActive}
	require.NoError(t, db.Create(&provider).Error)

	// 03:00 UTC on March 2 is still March 1 in New York, so "tomorrow" is March 2
	now := time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)
	tomorrow := models.NewDate(2026, time.March, 2)

	newBooking := func(date models.Date, status string, email string) *models.Booking {
		b := &models.Booking{
			BusinessID:      business.ID,
			ProviderID:      &provider.ID,
			CustomerName:    "Dana",
			CustomerEmail:   email,
			ScheduledDate:   date,
			ScheduledTime:   models.MustClock("10:00"),
			DurationMinutes: 60,
			Status:          status,
		}
		require.NoError(t, db.Create(b).Error)
		return b
	}

	due := newBooking(tomorrow, models.BookingStatusConfirmed, "dana@example.com")
	reminded := newBooking(tomorrow, models.BookingStatusConfirmed, "dana@example.com")
	earlier := now.Add(-time.Hour)
	require.NoError(t, db.Model(reminded).Update("reminder_sent_at", earlier).Error)
	later := newBooking(tomorrow.AddDays(2), models.BookingStatusConfirmed, "dana@example.com")
	canceled := newBooking(tomorrow, models.BookingStatusCanceled, "dana@example.com")
	noEmail := newBooking(tomorrow, models.BookingStatusConfirmed, "")

	sent := SendBookingReminders(db, cfg, now)
	assert.Equal(t, 1, sent)

	var updated models.Booking
	require.NoError(t, db.First(&updated, "id = ?", due.ID).Error)
	require.NotNil(t, updated.ReminderSentAt)
	assert.True(t, updated.ReminderSentAt.Equal(now))

	updated = models.Booking{}
	require.NoError(t, db.First(&updated, "id = ?", reminded.ID).Error)
	assert.True(t, updated.ReminderSentAt.Equal(earlier))

	for _, b := range []*models.Booking{later, canceled, noEmail} {
		updated = models.Booking{}
		require.NoError(t, db.First(&updated, "id = ?", b.ID).Error)
		assert.Nil(t, updated.ReminderSentAt)
	}

	assert.Zero(t, SendBookingReminders(db, cfg, now), "a second run sends nothing")
}
