package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Defaults applied when a business has no limits row, the row is disabled, or a field is unset
const (
	DefaultMaxBookingsPerDay     = 500
	DefaultMaxBookingsPerWeek    = 2500
	DefaultMaxBookingsPerMonth   = 10000
	DefaultMaxAdvanceBookingDays = 365
)

// BusinessSpotLimits caps how many bookings a business accepts
type BusinessSpotLimits struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BusinessID            string `gorm:"type:uuid;uniqueIndex;not null" json:"business_id"`
	MaxBookingsPerDay     int    `gorm:"not null;default:0" json:"max_bookings_per_day"`
	MaxBookingsPerWeek    int    `gorm:"not null;default:0" json:"max_bookings_per_week"`
	MaxBookingsPerMonth   int    `gorm:"not null;default:0" json:"max_bookings_per_month"`
	MaxAdvanceBookingDays int    `gorm:"not null;default:0" json:"max_advance_booking_days"`
	Enabled               bool   `gorm:"not null" json:"enabled"`
}

// BeforeCreate hook to generate UUID
func (l *BusinessSpotLimits) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for BusinessSpotLimits model
func (BusinessSpotLimits) TableName() string {
	return "business_spot_limits"
}

// Effective returns the limits to enforce, filling disabled or unset values with defaults
func (l *BusinessSpotLimits) Effective() BusinessSpotLimits {
	eff := BusinessSpotLimits{
		MaxBookingsPerDay:     DefaultMaxBookingsPerDay,
		MaxBookingsPerWeek:    DefaultMaxBookingsPerWeek,
		MaxBookingsPerMonth:   DefaultMaxBookingsPerMonth,
		MaxAdvanceBookingDays: DefaultMaxAdvanceBookingDays,
		Enabled:               true,
	}
	if l == nil || !l.Enabled {
		return eff
	}
	eff.ID = l.ID
	eff.BusinessID = l.BusinessID
	if l.MaxBookingsPerDay > 0 {
		eff.MaxBookingsPerDay = l.MaxBookingsPerDay
	}
	if l.MaxBookingsPerWeek > 0 {
		eff.MaxBookingsPerWeek = l.MaxBookingsPerWeek
	}
	if l.MaxBookingsPerMonth > 0 {
		eff.MaxBookingsPerMonth = l.MaxBookingsPerMonth
	}
	if l.MaxAdvanceBookingDays > 0 {
		eff.MaxAdvanceBookingDays = l.MaxAdvanceBookingDays
	}
	return eff
}
