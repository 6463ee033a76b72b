package services

import (
	"dispatch_app_go/models"
	"fmt"

	"gorm.io/gorm"
)

// FitQuery asks whether a provider can take [Start, Start+DurationMinutes) on Date
type FitQuery struct {
	BusinessID       string
	ProviderID       string
	Date             models.Date
	Start            models.Clock
	DurationMinutes  int
	ExcludeBookingID string // the booking being (re)assigned, if already stored
}

// Window returns the requested interval
func (q FitQuery) Window() models.Window {
	return models.Window{Start: q.Start, End: q.Start.Add(q.DurationMinutes)}
}

// FitResult is the outcome of a fit check. Reason is empty when the slot fits.
type FitResult struct {
	Reason      Reason          `json:"reason,omitempty"`
	Windows     []models.Window `json:"windows"`
	ConflictIDs []string        `json:"conflict_ids,omitempty"`
}

// OK reports whether the slot fits
func (r FitResult) OK() bool {
	return r.Reason == ""
}

// Err converts a failed result to a SchedulingError
func (r FitResult) Err(q FitQuery) error {
	switch r.Reason {
	case "":
		return nil
	case ReasonOutsideAvailability:
		return newSchedulingError(r.Reason, "%s-%s on %s is outside the provider's availability",
			q.Start, q.Window().End, q.Date)
	default:
		return newSchedulingError(r.Reason, "%s-%s on %s overlaps %d booking(s)",
			q.Start, q.Window().End, q.Date, len(r.ConflictIDs))
	}
}

// Fits checks availability first, then overlap with the provider's active bookings
func Fits(db *gorm.DB, q FitQuery) (FitResult, error) {
	if q.DurationMinutes <= 0 {
		return FitResult{}, invalidf("duration must be positive")
	}
	want := q.Window()
	if !want.Start.Valid() || !want.End.Valid() {
		return FitResult{Reason: ReasonOutsideAvailability, Windows: []models.Window{}}, nil
	}

	windows, err := ResolveAvailability(db, q.BusinessID, q.ProviderID, q.Date)
	if err != nil {
		return FitResult{}, err
	}
	result := FitResult{Windows: windows}

	inside := false
	for _, w := range windows {
		if w.Contains(want) {
			inside = true
			break
		}
	}
	if !inside {
		result.Reason = ReasonOutsideAvailability
		return result, nil
	}

	conflicts, err := overlappingBookingIDs(db, q.BusinessID, q.ProviderID, q.Date, want, q.ExcludeBookingID)
	if err != nil {
		return FitResult{}, err
	}
	if len(conflicts) > 0 {
		result.Reason = ReasonOverlap
		result.ConflictIDs = conflicts
	}
	return result, nil
}

// overlappingBookingIDs finds active bookings of the provider intersecting want.
// Clock columns hold zero-padded HH:MM text, so string comparison is clock order.
func overlappingBookingIDs(db *gorm.DB, businessID, providerID string, date models.Date, want models.Window, excludeID string) ([]string, error) {
	query := db.Model(&models.Booking{}).
		Where("business_id = ? AND provider_id = ? AND scheduled_date = ?", businessID, providerID, date).
		Where("status IN ?", models.ActiveBookingStatuses).
		Where("scheduled_time < ? AND end_time > ?", want.End, want.Start)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var ids []string
	if err := query.Order("scheduled_time asc").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return ids, nil
}

// noOverlapClause repeats the overlap test against the row being updated so a
// commit can never create a double booking, whatever was read beforehand
const noOverlapClause = `NOT EXISTS (
	SELECT 1 FROM bookings other
	WHERE other.provider_id = ?
	  AND other.scheduled_date = bookings.scheduled_date
	  AND other.id <> bookings.id
	  AND other.status IN ?
	  AND other.scheduled_time < bookings.end_time
	  AND other.end_time > bookings.scheduled_time
)`

// claimProvider writes the provider onto a stored, unassigned booking only if
// the provider has no active booking overlapping it. It reports false when the
// row no longer qualifies, leaving it untouched.
func claimProvider(tx *gorm.DB, booking *models.Booking, providerID, source string, onlyPending bool) (bool, error) {
	query := tx.Model(&models.Booking{}).
		Where("id = ? AND business_id = ? AND provider_id IS NULL", booking.ID, booking.BusinessID)
	if onlyPending {
		query = query.Where("status = ?", models.BookingStatusPending)
	}
	result := query.
		Where(noOverlapClause, providerID, models.ActiveBookingStatuses).
		Updates(map[string]interface{}{
			"provider_id":       providerID,
			"status":            models.BookingStatusConfirmed,
			"assignment_source": source,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to commit assignment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
