package handlers

import (
	"bytes"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSpotLimitsHandlers(t *testing.T) {
	s := newTestServer(t)

	rec := s.admin(http.MethodGet, "/api/settings/limits", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SpotLimitsResponse
	decode(t, rec, &resp)
	assert.Nil(t, resp.Configured)
	assert.Equal(t, models.DefaultMaxBookingsPerDay, resp.Usage.Limits.MaxBookingsPerDay)

	rec = s.admin(http.MethodPut, "/api/settings/limits", map[string]interface{}{
		"max_bookings_per_day":  3,
		"max_bookings_per_week": 10,
		"enabled":               true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, s.auditCount("BusinessSpotLimits", models.AuditActionUpdate))

	require.Equal(t, http.StatusCreated, s.admin(http.MethodPost, "/api/bookings", bookingBody(monday, "10:00", 60)).Code)

	rec = s.admin(http.MethodGet, "/api/settings/limits?date="+monday.String(), nil)
	decode(t, rec, &resp)
	require.NotNil(t, resp.Configured)
	assert.Equal(t, 3, resp.Configured.MaxBookingsPerDay)
	assert.Equal(t, 3, resp.Usage.Limits.MaxBookingsPerDay)
	assert.Equal(t, models.DefaultMaxBookingsPerMonth, resp.Usage.Limits.MaxBookingsPerMonth)
	assert.EqualValues(t, 1, resp.Usage.Day)

	requireReason(t, s.admin(http.MethodPut, "/api/settings/limits", map[string]interface{}{"max_bookings_per_day": -1}),
		http.StatusBadRequest, services.ReasonInvalidRequest)
}

func TestUpdateSchedulingSettingsHandler(t *testing.T) {
	s := newTestServer(t)

	rec := s.admin(http.MethodPut, "/api/settings/scheduling", map[string]bool{
		"auto_assign_enabled": true,
		"grab_enabled":        true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	business, err := services.GetBusiness(s.db, s.business.ID)
	require.NoError(t, err)
	assert.True(t, business.AutoAssignEnabled)
	assert.True(t, business.GrabEnabled)

	// with auto-assignment on, intake assigns without being asked
	ana := s.provider("ana")
	rec = s.admin(http.MethodPost, "/api/bookings", bookingBody(monday, "10:00", 60))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp BookingResponse
	decode(t, rec, &resp)
	require.NotNil(t, resp.Assignment)
	assert.Equal(t, ana.ID, resp.Assignment.Provider.ID)
}

func TestHolidayHandlers(t *testing.T) {
	s := newTestServer(t)
	ana := s.provider("ana")

	rec := s.admin(http.MethodPost, "/api/holidays", map[string]interface{}{
		"date": monday.String(),
		"name": "Founders Day",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var holiday models.BusinessHoliday
	decode(t, rec, &holiday)

	rec = s.admin(http.MethodGet, "/api/holidays", nil)
	var holidays []models.BusinessHoliday
	decode(t, rec, &holidays)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Founders Day", holidays[0].Name)

	assert.Empty(t, s.windowsOn(ana.ID, monday), "holidays close recurring availability")

	require.Equal(t, http.StatusNoContent, s.admin(http.MethodDelete, "/api/holidays/"+holiday.ID, nil).Code)
	assert.Equal(t, []string{"09:00-17:00"}, s.windowsOn(ana.ID, monday))
	requireReason(t, s.admin(http.MethodDelete, "/api/holidays/"+holiday.ID, nil), http.StatusNotFound, services.ReasonNotFound)
	requireReason(t, s.admin(http.MethodPost, "/api/holidays", map[string]string{"date": "next monday"}),
		http.StatusBadRequest, services.ReasonInvalidRequest)
}

func TestNotificationHandlers(t *testing.T) {
	s := newTestServer(t)
	for i, kind := range []string{models.NotificationKindAssigned, models.NotificationKindCapacityExceeded} {
		require.NoError(t, s.db.Create(&models.Notification{
			BusinessID: s.business.ID,
			Kind:       kind,
			Summary:    "event",
			OccurredAt: testNow.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	unread := func() int64 {
		rec := s.admin(http.MethodGet, "/api/notifications/unread-count", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]int64
		decode(t, rec, &body)
		return body["unread"]
	}

	rec := s.admin(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []models.Notification
	decode(t, rec, &feed)
	require.Len(t, feed, 2)
	assert.Equal(t, models.NotificationKindCapacityExceeded, feed[0].Kind, "newest first")
	assert.EqualValues(t, 2, unread())

	require.Equal(t, http.StatusNoContent, s.admin(http.MethodPost, "/api/notifications/"+feed[0].ID+"/read", nil).Code)
	assert.EqualValues(t, 1, unread())

	rec = s.admin(http.MethodGet, "/api/notifications?unread=true", nil)
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, models.NotificationKindAssigned, feed[0].Kind)

	require.Equal(t, http.StatusNoContent, s.admin(http.MethodPost, "/api/notifications/read-all", nil).Code)
	assert.Zero(t, unread())

	requireReason(t, s.admin(http.MethodPost, "/api/notifications/"+uuid.New().String()+"/read", nil),
		http.StatusNotFound, services.ReasonNotFound)
}

func TestAssignmentReportHandler(t *testing.T) {
	s := newTestServer(t)
	s.provider("ana")

	body := bookingBody(monday, "10:00", 60)
	body["auto_assign"] = true
	require.Equal(t, http.StatusCreated, s.admin(http.MethodPost, "/api/bookings", body).Code)

	rec := s.admin(http.MethodGet, "/api/reports/assignments.xlsx?from=2026-03-02&to=2026-03-08", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "assignments_2026-03-02_2026-03-08.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Assignments")

	rows, err := f.GetRows("Assignments")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "header plus one assignment")
}

func TestAuditLogHandlers(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusCreated, s.admin(http.MethodPost, "/api/holidays", map[string]string{"date": monday.String()}).Code)
	rec := s.admin(http.MethodPost, "/api/bookings", bookingBody(monday.AddDays(1), "10:00", 60))
	var created BookingResponse
	decode(t, rec, &created)
	require.Equal(t, http.StatusOK, s.admin(http.MethodPost, "/api/bookings/"+created.Booking.ID+"/cancel", nil).Code)
	s.waitForAudit()

	rec = s.admin(http.MethodGet, "/api/audit-logs?date_from=2020-01-01&date_to=2100-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page AuditLogPage
	decode(t, rec, &page)
	assert.EqualValues(t, 2, page.Total)
	for _, entry := range page.Logs {
		assert.Equal(t, "admin-1", entry.ActorID)
		assert.Equal(t, s.business.ID, entry.BusinessID)
	}

	rec = s.admin(http.MethodGet, "/api/audit-logs/Booking/"+created.Booking.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.AuditLog
	decode(t, rec, &history)
	require.Len(t, history, 1)
	assert.Equal(t, models.AuditActionCancel, history[0].Action)
}
