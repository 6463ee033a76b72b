package services

import (
	"context"
	"dispatch_app_go/models"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeriesService materializes recurring series into concrete bookings
type SeriesService struct {
	DB       *gorm.DB
	Assigner *AssignmentService
	Notifier Notifier
}

func NewSeriesService(db *gorm.DB, assigner *AssignmentService, notifier Notifier) *SeriesService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SeriesService{DB: db, Assigner: assigner, Notifier: notifier}
}

// ExtendResult summarizes one extension run of a series
type ExtendResult struct {
	SeriesID         string        `json:"series_id"`
	Created          int           `json:"created"`
	CreatedIDs       []string      `json:"created_ids,omitempty"`
	Deferred         []models.Date `json:"deferred,omitempty"`
	SkippedHolidays  []models.Date `json:"skipped_holidays,omitempty"`
	SkippedExisting  []models.Date `json:"skipped_existing,omitempty"`
	GeneratedThrough models.Date   `json:"generated_through"`
}

// ExtendAllResult aggregates ExtendAll over a business
type ExtendAllResult struct {
	Series   int      `json:"series"`
	Created  int      `json:"created"`
	Deferred int      `json:"deferred"`
	Failed   []string `json:"failed,omitempty"`
}

// occurrence returns the n-th date of the series counted from its start
// date. Every date is derived from the anchor, never from the previous
// occurrence, so clamped month ends do not drift.
func occurrence(series *models.RecurringSeries, n int) models.Date {
	start := series.StartDate
	switch series.FrequencyKind {
	case models.FrequencyMonthlyDay:
		first := models.NewDate(start.Year, start.Month+time.Month(n), 1)
		day := start.Day
		if dim := models.DaysInMonth(first.Year, first.Month); day > dim {
			day = dim
		}
		return models.Date{Year: first.Year, Month: first.Month, Day: day}
	case models.FrequencyMonthlyWeekday:
		return nthWeekdayOfMonth(start, n)
	default:
		return start.AddDays(n * series.IntervalDays)
	}
}

// nthWeekdayOfMonth keeps the start date's weekday ordinal ("2nd Tuesday");
// a start date in the last seven days of its month means "last Tuesday"
func nthWeekdayOfMonth(start models.Date, n int) models.Date {
	weekday := start.Weekday()
	ordinal := (start.Day-1)/7 + 1
	last := start.Day+7 > models.DaysInMonth(start.Year, start.Month)

	first := models.NewDate(start.Year, start.Month+time.Month(n), 1)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (ordinal-1)*7
	if last || day > models.DaysInMonth(first.Year, first.Month) {
		end := first.MonthEnd()
		back := (int(end.Weekday()) - int(weekday) + 7) % 7
		return end.AddDays(-back)
	}
	return models.Date{Year: first.Year, Month: first.Month, Day: day}
}

// firstIndexOnOrAfter returns the smallest n whose occurrence is not before lower
func firstIndexOnOrAfter(series *models.RecurringSeries, lower models.Date) int {
	n := 0
	switch series.FrequencyKind {
	case models.FrequencyMonthlyDay, models.FrequencyMonthlyWeekday:
		months := (lower.Year-series.StartDate.Year)*12 + int(lower.Month) - int(series.StartDate.Month) - 1
		if months > 0 {
			n = months
		}
	default:
		if days := series.StartDate.DaysUntil(lower); days > 0 && series.IntervalDays > 0 {
			n = days / series.IntervalDays
		}
	}
	for occurrence(series, n).Before(lower) {
		n++
	}
	return n
}

// Extend materializes the series' occurrences on dates before horizon
// (exclusive) and advances its watermark. Repeating the call with the same
// horizon creates nothing.
func (s *SeriesService) Extend(ctx context.Context, businessID, seriesID string, horizon models.Date, now time.Time) (*ExtendResult, error) {
	series, err := GetSeries(s.DB.WithContext(ctx), businessID, seriesID)
	if err != nil {
		return nil, err
	}
	return s.extendSeries(ctx, series, horizon, now)
}

// ExtendAll extends every active series of a business. A failing series is
// logged and reported, and does not stop the others.
func (s *SeriesService) ExtendAll(ctx context.Context, businessID string, horizon models.Date, now time.Time) (*ExtendAllResult, error) {
	var series []models.RecurringSeries
	err := s.DB.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Where("(generated_through IS NULL OR generated_through < ?)", horizon).
		Order("created_at asc").
		Find(&series).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active series: %w", err)
	}

	total := &ExtendAllResult{}
	for i := range series {
		result, err := s.extendSeries(ctx, &series[i], horizon, now)
		total.Series++
		if result != nil {
			total.Created += result.Created
			total.Deferred += len(result.Deferred)
		}
		if err != nil {
			log.Printf("[SERIES] Failed to extend series %s: %v", series[i].ID, err)
			total.Failed = append(total.Failed, series[i].ID)
		}
	}
	if total.Created > 0 || total.Deferred > 0 {
		log.Printf("[SERIES] Extended %d series of business %s to %s: %d created, %d deferred",
			total.Series, businessID, horizon, total.Created, total.Deferred)
	}
	return total, nil
}

func (s *SeriesService) extendSeries(ctx context.Context, series *models.RecurringSeries, horizon models.Date, now time.Time) (*ExtendResult, error) {
	db := s.DB.WithContext(ctx)
	result := &ExtendResult{SeriesID: series.ID, GeneratedThrough: series.Watermark()}
	if !series.IsActive || horizon.IsZero() {
		return result, nil
	}
	if err := validateFrequency(series); err != nil {
		return result, err
	}

	bound := horizon
	if series.HasEndDate() && series.EndDate.AddDays(1).Before(bound) {
		bound = series.EndDate.AddDays(1)
	}
	watermark := series.Watermark()
	if !watermark.IsZero() && !watermark.Before(bound) {
		return result, nil
	}

	business, err := GetBusiness(db, series.BusinessID)
	if err != nil {
		return result, err
	}
	var holidays []models.BusinessHoliday
	if !series.IgnoreHolidays {
		if holidays, err = Holidays.Load(db, series.BusinessID); err != nil {
			return result, err
		}
	}

	// Dates before today are never materialized
	lower := series.StartDate
	if watermark.After(lower) {
		lower = watermark
	}
	if today := business.Today(now); today.After(lower) {
		lower = today
	}

	for n := firstIndexOnOrAfter(series, lower); ; n++ {
		date := occurrence(series, n)
		if !date.Before(bound) {
			break
		}
		if err := s.materialize(ctx, series, business, date, holidays, now, result); err != nil {
			// Everything before the failing date is processed
			if werr := advanceWatermark(db, series, date); werr != nil {
				log.Printf("[SERIES] Failed to advance watermark of %s: %v", series.ID, werr)
			}
			return result, err
		}
	}

	if err := advanceWatermark(db, series, bound); err != nil {
		return result, err
	}
	result.GeneratedThrough = series.Watermark()
	return result, nil
}

// materialize handles one candidate date: holiday skip, duplicate skip,
// capacity deferral or booking creation. Only storage failures are returned.
func (s *SeriesService) materialize(ctx context.Context, series *models.RecurringSeries, business *models.Business, date models.Date, holidays []models.BusinessHoliday, now time.Time, result *ExtendResult) error {
	db := s.DB.WithContext(ctx)

	if matchesAnyHoliday(holidays, date) {
		result.SkippedHolidays = append(result.SkippedHolidays, date)
		return nil
	}

	booking := bookingFromSeries(series, date)
	err := insertGuarded(db, booking, now)
	switch {
	case err == nil:
		result.Created++
		result.CreatedIDs = append(result.CreatedIDs, booking.ID)
		resolveDeferral(db, series.ID, date, booking.ID, now)
		s.autoAssign(ctx, business, booking, now)
		return nil
	case errors.Is(err, errDuplicateOccurrence):
		result.SkippedExisting = append(result.SkippedExisting, date)
		return nil
	case ReasonOf(err).IsCapacity():
		if derr := recordDeferral(db, series, date, err); derr != nil {
			return derr
		}
		result.Deferred = append(result.Deferred, date)
		log.Printf("[SERIES] Deferred %s of series %s: %v", date, series.ID, err)
		s.Notifier.Notify(ctx, Event{
			Kind:       models.NotificationKindGenerationDeferred,
			BusinessID: series.BusinessID,
			SeriesID:   series.ID,
			Summary:    fmt.Sprintf("Recurring booking for %s on %s was deferred: %v", series.CustomerName, date, err),
			OccurredAt: now,
		})
		return nil
	default:
		return err
	}
}

// autoAssign hands a fresh booking to the selector when the business wants it.
// Eligibility failures leave the booking in the unassigned pool.
func (s *SeriesService) autoAssign(ctx context.Context, business *models.Business, booking *models.Booking, now time.Time) {
	if !business.AutoAssignEnabled || s.Assigner == nil {
		return
	}
	if _, err := s.Assigner.AutoAssign(ctx, business.ID, booking.ID, now); err != nil {
		log.Printf("[SERIES] Booking %s left unassigned: %v", booking.ID, err)
	}
}

func bookingFromSeries(series *models.RecurringSeries, date models.Date) *models.Booking {
	seriesID := series.ID
	return &models.Booking{
		BusinessID:       series.BusinessID,
		SeriesID:         &seriesID,
		ServiceID:        series.ServiceID,
		CustomerID:       series.CustomerID,
		CustomerName:     series.CustomerName,
		CustomerEmail:    series.CustomerEmail,
		Address:          series.Address,
		Notes:            series.Notes,
		ScheduledDate:    date,
		ScheduledTime:    series.ScheduledTime,
		EndTime:          series.ScheduledTime.Add(series.DurationMinutes),
		DurationMinutes:  series.DurationMinutes,
		Price:            series.Price,
		Status:           models.BookingStatusPending,
		AssignmentSource: models.AssignmentSourceNone,
	}
}

// advanceWatermark moves generated_through forward, never backward
func advanceWatermark(db *gorm.DB, series *models.RecurringSeries, to models.Date) error {
	err := db.Model(&models.RecurringSeries{}).
		Where("id = ? AND (generated_through IS NULL OR generated_through < ?)", series.ID, to).
		UpdateColumn("generated_through", to).Error
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	if series.Watermark().Before(to) {
		series.GeneratedThrough = &to
	}
	return nil
}

func recordDeferral(db *gorm.DB, series *models.RecurringSeries, date models.Date, cause error) error {
	deferred := &models.DeferredOccurrence{
		BusinessID: series.BusinessID,
		SeriesID:   series.ID,
		Date:       date,
		Reason:     string(ReasonOf(cause)),
		Detail:     cause.Error(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "series_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "detail", "updated_at"}),
	}).Create(deferred).Error
	if err != nil {
		return fmt.Errorf("failed to record deferred occurrence: %w", err)
	}
	return nil
}

func resolveDeferral(db *gorm.DB, seriesID string, date models.Date, bookingID string, now time.Time) {
	err := db.Model(&models.DeferredOccurrence{}).
		Where("series_id = ? AND date = ? AND resolved_at IS NULL", seriesID, date).
		Updates(map[string]interface{}{"resolved_at": now, "resolved_booking_id": bookingID}).Error
	if err != nil {
		log.Printf("[SERIES] Failed to resolve deferral of %s on %s: %v", seriesID, date, err)
	}
}

// CreateSeries validates and stores a new active series
func (s *SeriesService) CreateSeries(ctx context.Context, series *models.RecurringSeries, now time.Time) error {
	db := s.DB.WithContext(ctx)
	business, err := GetBusiness(db, series.BusinessID)
	if err != nil {
		return err
	}

	series.CustomerName = sanitizeText(series.CustomerName)
	series.Address = sanitizeText(series.Address)
	series.Notes = sanitizeText(series.Notes)
	if series.CustomerName == "" {
		return invalidf("customer name is required")
	}

	if series.ServiceID != nil && *series.ServiceID != "" {
		service, err := GetServiceOffering(db, series.BusinessID, *series.ServiceID)
		if err != nil {
			return err
		}
		if series.DurationMinutes == 0 {
			series.DurationMinutes = service.DurationMinutes
		}
		if series.Price.IsZero() {
			series.Price = service.Price
		}
	} else {
		series.ServiceID = nil
	}
	if series.DurationMinutes <= 0 {
		return invalidf("duration must be positive")
	}
	if !series.ScheduledTime.Valid() || series.ScheduledTime.Add(series.DurationMinutes) > models.EndOfDay {
		return invalidf("occurrences must start and end on the same day")
	}

	if series.FrequencyKind != models.FrequencyInterval {
		series.IntervalDays = 0
	}
	if err := validateFrequency(series); err != nil {
		return err
	}

	if series.StartDate.IsZero() {
		return invalidf("start date is required")
	}
	if series.StartDate.Before(business.Today(now)) {
		return invalidf("start date %s is in the past", series.StartDate)
	}
	if series.EndDate != nil && series.EndDate.IsZero() {
		series.EndDate = nil
	}
	if series.HasEndDate() && series.EndDate.Before(series.StartDate) {
		return invalidf("end date must not be before start date")
	}

	series.GeneratedThrough = nil
	series.IsActive = true
	if err := db.Create(series).Error; err != nil {
		return fmt.Errorf("failed to create series: %w", err)
	}
	return nil
}

func validateFrequency(series *models.RecurringSeries) error {
	switch series.FrequencyKind {
	case models.FrequencyInterval:
		if series.IntervalDays < 1 {
			return invalidf("interval must be at least one day")
		}
	case models.FrequencyMonthlyDay, models.FrequencyMonthlyWeekday:
	default:
		return invalidf("unknown frequency %q", series.FrequencyKind)
	}
	return nil
}

// GetSeries fetches a series of the business
func GetSeries(db *gorm.DB, businessID, id string) (*models.RecurringSeries, error) {
	var series models.RecurringSeries
	err := db.First(&series, "id = ? AND business_id = ?", id, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "series %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// ListSeries fetches the series of a business
func ListSeries(db *gorm.DB, businessID string, activeOnly bool) ([]models.RecurringSeries, error) {
	query := db.Where("business_id = ?", businessID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var series []models.RecurringSeries
	err := query.Order("created_at asc").Find(&series).Error
	return series, err
}

// DeactivateSeries stops future generation; existing bookings are kept
func DeactivateSeries(db *gorm.DB, businessID, id string) error {
	result := db.Model(&models.RecurringSeries{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate series: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newSchedulingError(ReasonNotFound, "series %s not found", id)
	}
	return nil
}

// ListDeferred fetches deferred occurrences of a business, oldest date first
func ListDeferred(db *gorm.DB, businessID string, includeResolved bool) ([]models.DeferredOccurrence, error) {
	query := db.Where("business_id = ?", businessID)
	if !includeResolved {
		query = query.Where("resolved_at IS NULL")
	}
	var deferred []models.DeferredOccurrence
	err := query.Order("date asc, created_at asc").Find(&deferred).Error
	return deferred, err
}

// RetryDeferred runs the capacity guard again for a deferred date and
// creates its booking when there is room
func (s *SeriesService) RetryDeferred(ctx context.Context, businessID, deferredID string, now time.Time) (*models.Booking, error) {
	db := s.DB.WithContext(ctx)

	var deferred models.DeferredOccurrence
	err := db.First(&deferred, "id = ? AND business_id = ?", deferredID, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "deferred occurrence %s not found", deferredID)
	}
	if err != nil {
		return nil, err
	}
	if deferred.IsResolved() {
		return nil, invalidf("deferred occurrence %s is already resolved", deferredID)
	}

	series, err := GetSeries(db, businessID, deferred.SeriesID)
	if err != nil {
		return nil, err
	}
	business, err := GetBusiness(db, businessID)
	if err != nil {
		return nil, err
	}
	if deferred.Date.Before(business.Today(now)) {
		return nil, invalidf("deferred date %s has passed", deferred.Date)
	}

	booking := bookingFromSeries(series, deferred.Date)
	err = insertGuarded(db, booking, now)
	if errors.Is(err, errDuplicateOccurrence) {
		var existing models.Booking
		if ferr := db.First(&existing, "series_id = ? AND scheduled_date = ?", series.ID, deferred.Date).Error; ferr != nil {
			return nil, ferr
		}
		resolveDeferral(db, series.ID, deferred.Date, existing.ID, now)
		return &existing, nil
	}
	if err != nil {
		if ReasonOf(err).IsCapacity() {
			if derr := recordDeferral(db, series, deferred.Date, err); derr != nil {
				return nil, derr
			}
		}
		return nil, err
	}

	resolveDeferral(db, series.ID, deferred.Date, booking.ID, now)
	s.autoAssign(ctx, business, booking, now)
	return GetBooking(db, businessID, booking.ID)
}
