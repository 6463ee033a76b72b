package services

import (
	"context"
	"dispatch_app_go/config"
	"dispatch_app_go/models"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sunday; the following Monday is 2026-03-02
var testNow = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

var (
	monday  = models.NewDate(2026, time.March, 2)
	tuesday = models.NewDate(2026, time.March, 3)
)

// setupTestDB opens a private in-memory database. A single connection keeps
// the database alive and makes concurrent callers queue on it.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	Holidays = &HolidayCalendar{}
	return db
}

// setupContendedDB opens a file-backed WAL database with several connections,
// so concurrent callers really race inside sqlite instead of queueing on one
// connection.
func setupContendedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "contended.db") + "?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	Holidays = &HolidayCalendar{}
	return db
}

type fixture struct {
	db       *gorm.DB
	business *models.Business
	bookings *BookingService
	assigner *AssignmentService
	series   *SeriesService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, setupTestDB(t))
}

// newContendedFixture is newFixture on a multi-connection database
func newContendedFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, setupContendedDB(t))
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	business := &models.Business{Name: "Sparkle Cleaning", Timezone: "UTC", GrabEnabled: true}
	require.NoError(t, CreateBusiness(db, business))

	assigner := NewAssignmentService(db, config.DefaultScoring(), nil)
	return &fixture{
		db:       db,
		business: business,
		bookings: NewBookingService(db, nil),
		assigner: assigner,
		series:   NewSeriesService(db, assigner, nil),
	}
}

func (f *fixture) provider(t *testing.T, name string, opts ...func(*models.Provider)) *models.Provider {
	t.Helper()
	p := &models.Provider{BusinessID: f.business.ID, Name: name, Email: name + "@example.com"}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, CreateProvider(f.db, p))
	return p
}

func (f *fixture) openRule(t *testing.T, providerID string, day time.Weekday, start, end string) *models.AvailabilityRule {
	t.Helper()
	rule := &models.AvailabilityRule{
		BusinessID:  f.business.ID,
		ProviderID:  providerID,
		DayOfWeek:   int(day),
		StartTime:   models.MustClock(start),
		EndTime:     models.MustClock(end),
		IsAvailable: true,
	}
	require.NoError(t, CreateAvailabilityRule(f.db, rule))
	return rule
}

func (f *fixture) booking(t *testing.T, date models.Date, start string, minutes int) *models.Booking {
	t.Helper()
	b := &models.Booking{
		BusinessID:      f.business.ID,
		CustomerName:    "Dana Customer",
		Address:         "12 Elm St",
		ScheduledDate:   date,
		ScheduledTime:   models.MustClock(start),
		DurationMinutes: minutes,
	}
	require.NoError(t, f.bookings.Create(context.Background(), b, testNow))
	return b
}

// assignDirectly stores a confirmed booking for a provider without any checks
func (f *fixture) assignDirectly(t *testing.T, providerID string, date models.Date, start string, minutes int) *models.Booking {
	t.Helper()
	b := &models.Booking{
		BusinessID:       f.business.ID,
		ProviderID:       &providerID,
		CustomerName:     "Existing Customer",
		ScheduledDate:    date,
		ScheduledTime:    models.MustClock(start),
		DurationMinutes:  minutes,
		Status:           models.BookingStatusConfirmed,
		AssignmentSource: models.AssignmentSourceManual,
	}
	require.NoError(t, f.db.Create(b).Error)
	return b
}

func window(start, end string) models.Window {
	return models.Window{Start: models.MustClock(start), End: models.MustClock(end)}
}

func datePtr(d models.Date) *models.Date {
	return &d
}
