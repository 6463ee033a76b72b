package services

import (
	"context"
	"dispatch_app_go/models"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rated(rating float64, count int) func(*models.Provider) {
	return func(p *models.Provider) {
		p.Rating = rating
		p.RatingCount = count
	}
}

func priority(n int) func(*models.Provider) {
	return func(p *models.Provider) { p.Priority = n }
}

func createdAt(t time.Time) func(*models.Provider) {
	return func(p *models.Provider) { p.CreatedAt = t }
}

func TestAutoAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("highest score wins and is recorded", func(t *testing.T) {
		f := newFixture(t)
		rec := &recordingNotifier{}
		f.assigner.Notifier = rec
		low := f.provider(t, "low", rated(3.0, 10))
		high := f.provider(t, "high", rated(4.8, 10))
		f.openRule(t, low.ID, time.Monday, "09:00", "17:00")
		f.openRule(t, high.ID, time.Monday, "09:00", "17:00")
		b := f.booking(t, monday, "10:00", 120)

		result, err := f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
		require.NoError(t, err)
		assert.Equal(t, high.ID, result.Provider.ID)
		assert.Equal(t, models.BookingStatusConfirmed, result.Booking.Status)
		assert.Equal(t, models.AssignmentSourceAuto, result.Booking.AssignmentSource)
		require.NotNil(t, result.Booking.ProviderID)
		assert.Equal(t, high.ID, *result.Booking.ProviderID)

		var stored models.Assignment
		require.NoError(t, f.db.First(&stored, "booking_id = ?", b.ID).Error)
		assert.Equal(t, models.AssignmentSourceAuto, stored.Source)
		assert.InDelta(t, 96.0, stored.Score, 1e-9)

		var breakdown ScoreBreakdown
		require.NoError(t, json.Unmarshal(stored.Breakdown, &breakdown))
		assert.InDelta(t, 96.0, breakdown.NormalizedRating, 1e-9)

		assert.Equal(t, []string{models.NotificationKindAssigned}, rec.kinds())
	})

	t.Run("workload spreads bookings", func(t *testing.T) {
		f := newFixture(t)
		busy := f.provider(t, "busy")
		idle := f.provider(t, "idle")
		f.openRule(t, busy.ID, time.Monday, "08:00", "18:00")
		f.openRule(t, idle.ID, time.Monday, "08:00", "18:00")
		f.assignDirectly(t, busy.ID, monday, "08:00", 60)
		b := f.booking(t, monday, "12:00", 60)

		result, err := f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
		require.NoError(t, err)
		assert.Equal(t, idle.ID, result.Provider.ID)
	})

	t.Run("specialty match earns a bonus", func(t *testing.T) {
		f := newFixture(t)
		generalist := f.provider(t, "generalist", rated(4.5, 3))
		specialist := f.provider(t, "specialist", rated(4.0, 3))
		f.openRule(t, generalist.ID, time.Monday, "09:00", "17:00")
		f.openRule(t, specialist.ID, time.Monday, "09:00", "17:00")
		require.NoError(t, AddProviderSpecialty(f.db, f.business.ID, specialist.ID, "windows"))

		service := &models.ServiceOffering{BusinessID: f.business.ID, Name: "Windows", Category: "windows", DurationMinutes: 60, IsActive: true}
		require.NoError(t, CreateServiceOffering(f.db, service))
		b := &models.Booking{
			BusinessID: f.business.ID, ServiceID: &service.ID, CustomerName: "Dana",
			ScheduledDate: monday, ScheduledTime: models.MustClock("09:00"),
		}
		require.NoError(t, f.bookings.Create(ctx, b, testNow))

		result, err := f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
		require.NoError(t, err)
		assert.Equal(t, specialist.ID, result.Provider.ID, "80 + 25 beats 90")
	})

	t.Run("no eligible provider leaves the booking in the pool", func(t *testing.T) {
		f := newFixture(t)
		p := f.provider(t, "ana")
		f.openRule(t, p.ID, time.Tuesday, "09:00", "17:00")
		b := f.booking(t, monday, "10:00", 60)

		_, err := f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
		assert.ErrorIs(t, err, ErrNoEligibleProvider)
		assert.Contains(t, err.Error(), string(ReasonOutsideAvailability))

		stored, err := GetBooking(f.db, f.business.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, stored.Status)
		assert.Nil(t, stored.ProviderID)
	})

	t.Run("assigned and canceled bookings are not reassigned", func(t *testing.T) {
		f := newFixture(t)
		p := f.provider(t, "ana")
		f.openRule(t, p.ID, time.Monday, "09:00", "17:00")
		b := f.booking(t, monday, "10:00", 60)

		_, err := f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
		require.NoError(t, err)
		_, err = f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
		assert.ErrorIs(t, err, ErrAlreadyAssigned)

		c := f.booking(t, monday, "14:00", 60)
		_, err = f.bookings.Cancel(ctx, f.business.ID, c.ID, testNow)
		require.NoError(t, err)
		_, err = f.assigner.AutoAssign(ctx, f.business.ID, c.ID, testNow)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAutoAssign_TieBreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := testNow.Add(-time.Hour)
	first := f.provider(t, "first", createdAt(base))
	second := f.provider(t, "second", createdAt(base.Add(time.Minute)))
	favored := f.provider(t, "favored", createdAt(base.Add(2*time.Minute)), priority(5))
	for _, p := range []*models.Provider{first, second, favored} {
		f.openRule(t, p.ID, time.Monday, "09:00", "17:00")
	}

	b := f.booking(t, monday, "09:00", 60)
	report, err := f.assigner.PreviewEligibility(ctx, f.business.ID, b.ID, testNow)
	require.NoError(t, err)
	require.Len(t, report.Candidates, 3)
	assert.Equal(t, favored.ID, report.Candidates[0].Provider.ID, "equal scores fall to priority")
	assert.Equal(t, first.ID, report.Candidates[1].Provider.ID, "then to the earlier provider")
	assert.Equal(t, second.ID, report.Candidates[2].Provider.ID)
	assert.Equal(t, favored.ID, report.WinnerID)

	result, err := f.assigner.AutoAssign(ctx, f.business.ID, b.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, favored.ID, result.Provider.ID)
}

func TestPreviewEligibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ok := f.provider(t, "ok")
	away := f.provider(t, "away", func(p *models.Provider) { p.Status = models.ProviderStatusOnLeave })
	banned := f.provider(t, "banned")
	f.provider(t, "closed") // no rules at all
	busy := f.provider(t, "busy")
	for _, p := range []*models.Provider{ok, away, banned, busy} {
		f.openRule(t, p.ID, time.Monday, "09:00", "17:00")
	}
	f.assignDirectly(t, busy.ID, monday, "10:30", 60)

	service := &models.ServiceOffering{BusinessID: f.business.ID, Name: "Oven", DurationMinutes: 60, IsActive: true}
	require.NoError(t, CreateServiceOffering(f.db, service))
	require.NoError(t, ExcludeProviderFromService(f.db, f.business.ID, service.ID, banned.ID, "customer request"))

	b := &models.Booking{
		BusinessID: f.business.ID, ServiceID: &service.ID, CustomerName: "Dana",
		ScheduledDate: monday, ScheduledTime: models.MustClock("10:00"),
	}
	require.NoError(t, f.bookings.Create(ctx, b, testNow))

	report, err := f.assigner.PreviewEligibility(ctx, f.business.ID, b.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, ok.ID, report.WinnerID)

	reasons := make(map[string]Reason)
	for _, c := range report.Candidates {
		reasons[c.Provider.Name] = c.Reason
		if c.Eligible {
			assert.NotNil(t, c.Score)
		} else {
			assert.Nil(t, c.Score)
			assert.NotEmpty(t, c.Detail)
		}
	}
	assert.Equal(t, map[string]Reason{
		"ok":     "",
		"away":   ReasonProviderInactive,
		"banned": ReasonProviderExcluded,
		"closed": ReasonOutsideAvailability,
		"busy":   ReasonOverlap,
	}, reasons)
	assert.True(t, report.Candidates[0].Eligible)

	stored, err := GetBooking(f.db, f.business.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ProviderID, "preview never commits")
}

func TestGrab(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled for the business", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, UpdateSchedulingSettings(f.db, f.business.ID, false, false))
		p := f.provider(t, "ana")
		f.openRule(t, p.ID, time.Monday, "09:00", "17:00")
		b := f.booking(t, monday, "10:00", 60)

		_, err := f.assigner.Grab(ctx, f.business.ID, b.ID, p.ID, testNow)
		assert.Equal(t, ReasonGrabDisabled, ReasonOf(err))
	})

	t.Run("provider claims a pool booking once", func(t *testing.T) {
		f := newFixture(t)
		rec := &recordingNotifier{}
		f.assigner.Notifier = rec
		ana := f.provider(t, "ana")
		ben := f.provider(t, "ben")
		f.openRule(t, ana.ID, time.Monday, "09:00", "17:00")
		f.openRule(t, ben.ID, time.Monday, "09:00", "17:00")
		b := f.booking(t, monday, "10:00", 60)

		result, err := f.assigner.Grab(ctx, f.business.ID, b.ID, ben.ID, testNow)
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentSourceGrab, result.Booking.AssignmentSource)
		assert.Equal(t, models.AssignmentSourceGrab, result.Assignment.Source)
		assert.Equal(t, []string{models.NotificationKindGrabbed}, rec.kinds())

		_, err = f.assigner.Grab(ctx, f.business.ID, b.ID, ana.ID, testNow)
		assert.ErrorIs(t, err, ErrAlreadyAssigned)
	})

	t.Run("same hard filters as auto-assignment", func(t *testing.T) {
		f := newFixture(t)
		p := f.provider(t, "ana")
		f.openRule(t, p.ID, time.Monday, "09:00", "10:00")
		b := f.booking(t, monday, "09:30", 60)

		_, err := f.assigner.Grab(ctx, f.business.ID, b.ID, p.ID, testNow)
		assert.ErrorIs(t, err, ErrOutsideAvailability)

		_, err = f.assigner.Grab(ctx, f.business.ID, b.ID, "missing", testNow)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAutoAssign_ConcurrentCallsCommitOnce(t *testing.T) {
	f := newContendedFixture(t)
	for i := 0; i < 3; i++ {
		p := f.provider(t, fmt.Sprintf("p%d", i))
		f.openRule(t, p.ID, time.Monday, "09:00", "17:00")
	}
	b := f.booking(t, monday, "10:00", 60)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.assigner.AutoAssign(context.Background(), f.business.ID, b.ID, testNow)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyAssigned)
	}
	assert.Equal(t, 1, wins)

	var assignments int64
	f.db.Model(&models.Assignment{}).Where("booking_id = ?", b.ID).Count(&assignments)
	assert.Equal(t, int64(1), assignments)
}

func TestGrabAndAutoAssign_RaceCommitsOnce(t *testing.T) {
	f := newContendedFixture(t)
	providers := make([]*models.Provider, 3)
	for i := range providers {
		providers[i] = f.provider(t, fmt.Sprintf("p%d", i))
		f.openRule(t, providers[i].ID, time.Monday, "09:00", "17:00")
	}
	b := f.booking(t, monday, "10:00", 60)

	const rounds = 3
	errs := make([]error, 0, rounds*(len(providers)+1))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	for r := 0; r < rounds; r++ {
		for _, p := range providers {
			wg.Add(1)
			go func(providerID string) {
				defer wg.Done()
				_, err := f.assigner.Grab(context.Background(), f.business.ID, b.ID, providerID, testNow)
				record(err)
			}(p.ID)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.assigner.AutoAssign(context.Background(), f.business.ID, b.ID, testNow)
			record(err)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyAssigned)
	}
	assert.Equal(t, 1, wins)

	var assignments int64
	f.db.Model(&models.Assignment{}).Where("booking_id = ?", b.ID).Count(&assignments)
	assert.Equal(t, int64(1), assignments)
}

func TestAssignment_NoProviderIsDoubleBooked(t *testing.T) {
	f := newFixture(t)
	providers := make([]*models.Provider, 2)
	for i := range providers {
		providers[i] = f.provider(t, fmt.Sprintf("p%d", i))
		f.openRule(t, providers[i].ID, time.Monday, "08:00", "18:00")
	}

	// Staggered, heavily overlapping bookings
	var bookings []*models.Booking
	for i := 0; i < 10; i++ {
		start := models.Clock(9*60 + i*20)
		bookings = append(bookings, f.booking(t, monday, start.String(), 90))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(bookings)*len(providers)*2)
	for _, b := range bookings {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.assigner.AutoAssign(context.Background(), f.business.ID, id, testNow)
			errs <- err
		}(b.ID)
		for _, p := range providers {
			wg.Add(1)
			go func(bookingID, providerID string) {
				defer wg.Done()
				_, err := f.assigner.Grab(context.Background(), f.business.ID, bookingID, providerID, testNow)
				errs <- err
			}(b.ID, p.ID)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil {
			continue
		}
		reason := ReasonOf(err)
		assert.True(t, reason.IsEligibility() || reason == ReasonAlreadyAssigned, "unexpected error: %v", err)
	}

	all, err := ListBookings(f.db, f.business.ID, monday, monday, BookingFilters{})
	require.NoError(t, err)
	assigned := 0
	for i := range all {
		if !all[i].IsAssigned() {
			continue
		}
		assigned++
		for j := i + 1; j < len(all); j++ {
			if !all[j].IsAssigned() || *all[j].ProviderID != *all[i].ProviderID {
				continue
			}
			assert.False(t, all[i].Window().Overlaps(all[j].Window()),
				"provider %s double booked: %s and %s", *all[i].ProviderID, all[i].ScheduledTime, all[j].ScheduledTime)
		}
	}
	assert.GreaterOrEqual(t, assigned, 2)
}
