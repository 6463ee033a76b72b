package handlers

import (
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) windowsOn(providerID string, date models.Date) []string {
	s.t.Helper()
	rec := s.admin(http.MethodGet, "/api/providers/"+providerID+"/availability?date="+date.String(), nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var day DayAvailabilityResponse
	decode(s.t, rec, &day)

	out := []string{}
	for _, w := range day.Windows {
		out = append(out, w.Start.String()+"-"+w.End.String())
	}
	return out
}

func TestAvailabilityRuleHandlers(t *testing.T) {
	s := newTestServer(t)
	ana := s.provider("ana")
	rulesPath := "/api/providers/" + ana.ID + "/rules"

	assert.Equal(t, []string{"09:00-17:00"}, s.windowsOn(ana.ID, monday))

	// ana blocks her lunch on one Monday
	rec := s.do(http.MethodPost, rulesPath, map[string]interface{}{
		"start_time":     "12:00",
		"end_time":       "13:00",
		"is_available":   false,
		"effective_date": monday.String(),
		"note":           "dentist",
	}, providerHeaders(ana.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rule models.AvailabilityRule
	decode(t, rec, &rule)
	assert.Equal(t, 1, rule.DayOfWeek, "single-date rules take the weekday of their date")

	assert.Equal(t, []string{"09:00-12:00", "13:00-17:00"}, s.windowsOn(ana.ID, monday))
	assert.Equal(t, []string{"09:00-17:00"}, s.windowsOn(ana.ID, monday.AddDays(7)))
	assert.EqualValues(t, 1, s.auditCount("AvailabilityRule", models.AuditActionCreate))

	rec = s.do(http.MethodPut, rulesPath+"/"+rule.ID, map[string]interface{}{
		"start_time":     "12:00",
		"end_time":       "14:00",
		"is_available":   false,
		"effective_date": monday.String(),
	}, providerHeaders(ana.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"09:00-12:00", "14:00-17:00"}, s.windowsOn(ana.ID, monday))

	rec = s.do(http.MethodDelete, rulesPath+"/"+rule.ID, nil, providerHeaders(ana.ID))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"09:00-17:00"}, s.windowsOn(ana.ID, monday))
	assert.EqualValues(t, 1, s.auditCount("AvailabilityRule", models.AuditActionUpdate))
	assert.EqualValues(t, 1, s.auditCount("AvailabilityRule", models.AuditActionDelete))

	requireReason(t, s.do(http.MethodDelete, rulesPath+"/"+rule.ID, nil, providerHeaders(ana.ID)),
		http.StatusNotFound, services.ReasonNotFound)
}

func TestAvailabilityRuleHandlers_Invalid(t *testing.T) {
	s := newTestServer(t)
	ana := s.provider("ana")
	ben := s.provider("ben")
	rulesPath := "/api/providers/" + ana.ID + "/rules"

	for name, body := range map[string]map[string]interface{}{
		"end before start":     {"day_of_week": 1, "start_time": "14:00", "end_time": "10:00"},
		"bad clock":            {"day_of_week": 1, "start_time": "9:00", "end_time": "10:00"},
		"weekday out of range": {"day_of_week": 7, "start_time": "09:00", "end_time": "10:00"},
		"expiry without start": {"day_of_week": 1, "start_time": "09:00", "end_time": "10:00", "expiry_date": "2026-04-01"},
	} {
		t.Run(name, func(t *testing.T) {
			requireReason(t, s.admin(http.MethodPost, rulesPath, body), http.StatusBadRequest, services.ReasonInvalidRequest)
		})
	}

	t.Run("rule of another provider", func(t *testing.T) {
		rules, err := services.GetProviderRules(s.db, s.business.ID, ben.ID)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		requireReason(t, s.admin(http.MethodDelete, rulesPath+"/"+rules[0].ID, nil), http.StatusNotFound, services.ReasonNotFound)
	})
}

func TestGetProviderAvailabilityHandler_Range(t *testing.T) {
	s := newTestServer(t)
	ana := s.provider("ana")

	rec := s.admin(http.MethodGet, "/api/providers/"+ana.ID+"/availability?from="+monday.String()+"&to="+monday.AddDays(6).String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var days []services.DayAvailability
	decode(t, rec, &days)
	require.Len(t, days, 7)
	assert.Equal(t, monday, days[0].Date)
	assert.Len(t, days[0].Windows, 1)
	for _, d := range days[1:] {
		assert.Empty(t, d.Windows, d.Date.String())
	}

	rec = s.admin(http.MethodGet, "/api/providers/"+ana.ID+"/availability?from="+monday.String()+"&to="+monday.AddDays(-1).String(), nil)
	requireReason(t, rec, http.StatusBadRequest, services.ReasonInvalidRequest)
}

func TestProviderHandlers(t *testing.T) {
	s := newTestServer(t)

	rec := s.admin(http.MethodPost, "/api/providers", map[string]interface{}{
		"name":                 "Cleo",
		"email":                "cleo@example.com",
		"rating":               4.5,
		"rating_count":         10,
		"specialties":          []string{"carpets", "windows"},
		"default_availability": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cleo models.Provider
	decode(t, rec, &cleo)
	assert.Equal(t, models.ProviderStatusActive, cleo.Status)
	assert.Len(t, cleo.Specialties, 2)

	rules, err := services.GetProviderRules(s.db, s.business.ID, cleo.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 5)
	requireReason(t, s.admin(http.MethodPost, "/api/providers/"+cleo.ID+"/rules/default", nil),
		http.StatusBadRequest, services.ReasonInvalidRequest)

	requireReason(t, s.admin(http.MethodPost, "/api/providers", map[string]interface{}{"name": "Bad", "rating": 6}),
		http.StatusBadRequest, services.ReasonInvalidRequest)

	rec = s.admin(http.MethodPut, "/api/providers/"+cleo.ID+"/status", map[string]string{"status": "on_leave"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, s.auditCount("Provider", models.AuditActionDisable))
	requireReason(t, s.admin(http.MethodPut, "/api/providers/"+cleo.ID+"/status", map[string]string{"status": "retired"}),
		http.StatusBadRequest, services.ReasonInvalidRequest)

	rec = s.admin(http.MethodGet, "/api/providers?status=on_leave", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Provider
	decode(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, cleo.ID, listed[0].ID)
}

func TestServiceHandlers(t *testing.T) {
	s := newTestServer(t)
	ana := s.provider("ana")
	ben := s.provider("ben")

	rec := s.admin(http.MethodPost, "/api/services", map[string]interface{}{
		"name":             "Deep clean",
		"category":         "deep",
		"duration_minutes": 120,
		"price":            "80.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var service models.ServiceOffering
	decode(t, rec, &service)
	assert.Equal(t, "80.5", service.Price.String())

	rec = s.admin(http.MethodPost, "/api/services/"+service.ID+"/exclusions", map[string]string{"provider_id": ana.ID, "reason": "complaint"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	body := bookingBody(monday, "10:00", 0)
	body["service_id"] = service.ID
	body["auto_assign"] = true
	rec = s.admin(http.MethodPost, "/api/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp BookingResponse
	decode(t, rec, &resp)
	require.NotNil(t, resp.Assignment)
	assert.Equal(t, ben.ID, resp.Assignment.Provider.ID, "excluded provider is never picked")
	assert.Equal(t, 120, resp.Booking.DurationMinutes)
}
