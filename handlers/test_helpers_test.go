package handlers

import (
	"bytes"
	"dispatch_app_go/config"
	"dispatch_app_go/db"
	"dispatch_app_go/middleware"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testNow is a Sunday morning; the next day is a Monday
var (
	testNow = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	monday  = models.NewDate(2026, time.March, 2)
)

func testConfig() *config.Config {
	return &config.Config{
		AppURL:             "http://test.com",
		EmailTestMode:      true,
		DefaultHorizonDays: 56,
		Scoring:            config.DefaultScoring(),
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	// Unique shared memory name isolates tests; one connection keeps the
	// async audit writer from contending with request writes
	dsn := "file:mem_" + uuid.New().String() + "?mode=memory&cache=shared"
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		services.WaitForAuditLogs()
		sqlDB.Close()
	})

	require.NoError(t, testDB.AutoMigrate(models.All()...))

	// Set global DB
	db.DB = testDB
	services.Holidays = &services.HolidayCalendar{}
	Notifier = services.NopNotifier{}
	return testDB
}

// testServer is the API wired the way the server wires it, for one business
type testServer struct {
	t        *testing.T
	db       *gorm.DB
	e        *echo.Echo
	business *models.Business
}

func newTestServer(t *testing.T) *testServer {
	testDB := setupTestDB(t)

	business := &models.Business{Name: "Sparkle Cleaning", Timezone: "UTC"}
	require.NoError(t, services.CreateBusiness(testDB, business))

	e := echo.New()
	e.Validator = NewRequestValidator()
	RegisterRoutes(e, RouteOptions{
		Config: testConfig(),
		Clock:  func() time.Time { return testNow },
	})
	return &testServer{t: t, db: testDB, e: e, business: business}
}

func adminHeaders() map[string]string {
	return map[string]string{middleware.HeaderActorID: "admin-1", middleware.HeaderActorRole: middleware.RoleAdmin}
}

func providerHeaders(providerID string) map[string]string {
	return map[string]string{middleware.HeaderProviderID: providerID}
}

// do sends a request as the given actor and returns the recorder
func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderBusinessID, s.business.ID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, adminHeaders())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireReason(t *testing.T, rec *httptest.ResponseRecorder, status int, reason services.Reason) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var body ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, string(reason), body.Reason, body.Message)
}

// provider creates an active provider open Mon 09:00-17:00
func (s *testServer) provider(name string) *models.Provider {
	s.t.Helper()
	p := &models.Provider{BusinessID: s.business.ID, Name: name, Email: name + "@example.com", Status: models.ProviderStatusActive}
	require.NoError(s.t, services.CreateProvider(s.db, p))
	require.NoError(s.t, services.CreateAvailabilityRule(s.db, &models.AvailabilityRule{
		BusinessID:  s.business.ID,
		ProviderID:  p.ID,
		DayOfWeek:   int(time.Monday),
		StartTime:   models.MustClock("09:00"),
		EndTime:     models.MustClock("17:00"),
		IsAvailable: true,
	}))
	return p
}

func bookingBody(date models.Date, start string, minutes int) map[string]interface{} {
	return map[string]interface{}{
		"customer_name":    "Dana Customer",
		"customer_email":   "dana@example.com",
		"address":          "1 Main St",
		"date":             date.String(),
		"time":             start,
		"duration_minutes": minutes,
	}
}

// setupEcho builds a bare handler context for direct handler calls
func setupEcho(method, path string, body io.Reader, business *models.Business) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	c.Set("config", testConfig())
	c.Set(middleware.ContextKeyNow, testNow)
	c.Set(middleware.ContextKeyBusiness, business)
	c.Set(middleware.ContextKeyActor, middleware.Actor{ID: "admin-1", Role: middleware.RoleAdmin})
	return e, c, rec
}

func (s *testServer) waitForAudit() {
	services.WaitForAuditLogs()
}

func (s *testServer) auditCount(resourceType string, action models.AuditAction) int64 {
	s.t.Helper()
	s.waitForAudit()
	var count int64
	require.NoError(s.t, s.db.Model(&models.AuditLog{}).
		Where("business_id = ? AND resource_type = ? AND action = ?", s.business.ID, resourceType, action).
		Count(&count).Error)
	return count
}
