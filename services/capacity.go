package services

import (
	"dispatch_app_go/models"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CapacityUsage is the active booking load around a date
type CapacityUsage struct {
	Date   models.Date               `json:"date"`
	Day    int64                     `json:"day"`
	Week   int64                     `json:"week"`
	Month  int64                     `json:"month"`
	Limits models.BusinessSpotLimits `json:"limits"`
}

// CheckCapacity reports the first limit that one more booking on date would
// break, checked in the order daily, weekly, monthly, advance window. A nil
// result means the booking may be stored.
func CheckCapacity(db *gorm.DB, businessID string, date models.Date, now time.Time) error {
	business, err := GetBusiness(db, businessID)
	if err != nil {
		return err
	}
	usage, err := GetCapacityUsage(db, businessID, date)
	if err != nil {
		return err
	}
	limits := usage.Limits

	if usage.Day >= int64(limits.MaxBookingsPerDay) {
		return newSchedulingError(ReasonDailyLimitExceeded,
			"%s already has %d of %d bookings", date, usage.Day, limits.MaxBookingsPerDay)
	}
	if usage.Week >= int64(limits.MaxBookingsPerWeek) {
		return newSchedulingError(ReasonWeeklyLimitExceeded,
			"week of %s already has %d of %d bookings", date.WeekStart(), usage.Week, limits.MaxBookingsPerWeek)
	}
	if usage.Month >= int64(limits.MaxBookingsPerMonth) {
		return newSchedulingError(ReasonMonthlyLimitExceeded,
			"%04d-%02d already has %d of %d bookings", date.Year, int(date.Month), usage.Month, limits.MaxBookingsPerMonth)
	}

	latest := business.Today(now).AddDays(limits.MaxAdvanceBookingDays)
	if date.After(latest) {
		return newSchedulingError(ReasonAdvanceWindowExceeded,
			"%s is more than %d days ahead", date, limits.MaxAdvanceBookingDays)
	}
	return nil
}

// GetCapacityUsage counts active bookings for the day, ISO week and month of date
func GetCapacityUsage(db *gorm.DB, businessID string, date models.Date) (*CapacityUsage, error) {
	limits, err := GetSpotLimits(db, businessID)
	if err != nil {
		return nil, err
	}
	usage := &CapacityUsage{Date: date, Limits: limits.Effective()}

	if usage.Day, err = countActiveBookings(db, businessID, date, date); err != nil {
		return nil, err
	}
	weekStart := date.WeekStart()
	if usage.Week, err = countActiveBookings(db, businessID, weekStart, weekStart.AddDays(6)); err != nil {
		return nil, err
	}
	if usage.Month, err = countActiveBookings(db, businessID, date.MonthStart(), date.MonthEnd()); err != nil {
		return nil, err
	}
	return usage, nil
}

// countActiveBookings counts active bookings with from <= scheduled_date <= to
func countActiveBookings(db *gorm.DB, businessID string, from, to models.Date) (int64, error) {
	var count int64
	err := db.Model(&models.Booking{}).
		Where("business_id = ? AND scheduled_date >= ? AND scheduled_date <= ?", businessID, from, to).
		Where("status IN ?", models.ActiveBookingStatuses).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// GetSpotLimits returns the stored limits of a business, or nil when none are configured
func GetSpotLimits(db *gorm.DB, businessID string) (*models.BusinessSpotLimits, error) {
	var limits models.BusinessSpotLimits
	err := db.Where("business_id = ?", businessID).First(&limits).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load spot limits: %w", err)
	}
	return &limits, nil
}

// UpsertSpotLimits stores the limits row of a business, creating it on first use
func UpsertSpotLimits(db *gorm.DB, limits *models.BusinessSpotLimits) error {
	if limits.BusinessID == "" {
		return invalidf("business is required")
	}
	if limits.MaxBookingsPerDay < 0 || limits.MaxBookingsPerWeek < 0 ||
		limits.MaxBookingsPerMonth < 0 || limits.MaxAdvanceBookingDays < 0 {
		return invalidf("limits must not be negative")
	}

	existing, err := GetSpotLimits(db, limits.BusinessID)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := db.Create(limits).Error; err != nil {
			return fmt.Errorf("failed to create spot limits: %w", err)
		}
		return nil
	}

	limits.ID = existing.ID
	limits.CreatedAt = existing.CreatedAt
	// Save writes zero values, so a limit can be cleared back to its default
	if err := db.Save(limits).Error; err != nil {
		return fmt.Errorf("failed to update spot limits: %w", err)
	}
	return nil
}
