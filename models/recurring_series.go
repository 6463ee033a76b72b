package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Frequency kinds of a recurring series
const (
	// FrequencyInterval repeats every IntervalDays days from the start date
	FrequencyInterval = "interval"
	// FrequencyMonthlyDay repeats on the start date's day of month, clamped in short months
	FrequencyMonthlyDay = "monthly_day"
	// FrequencyMonthlyWeekday repeats on the start date's nth weekday of the month
	FrequencyMonthlyWeekday = "monthly_weekday"
)

// RecurringSeries is the template that materializes repeating bookings
type RecurringSeries struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BusinessID string  `gorm:"type:uuid;index;not null" json:"business_id"`
	ServiceID  *string `gorm:"type:uuid;index" json:"service_id,omitempty"`

	// Booking template
	CustomerID      string          `gorm:"size:100;index" json:"customer_id"`
	CustomerName    string          `gorm:"size:200;not null" json:"customer_name"`
	CustomerEmail   string          `gorm:"size:200" json:"customer_email,omitempty"`
	Address         string          `gorm:"size:500" json:"address"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	ScheduledTime   Clock           `gorm:"size:5;not null" json:"scheduled_time"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`

	// Frequency
	FrequencyKind string `gorm:"size:20;not null" json:"frequency_kind"`
	IntervalDays  int    `gorm:"not null;default:0" json:"interval_days,omitempty"`

	StartDate Date  `gorm:"size:10;not null" json:"start_date"`
	EndDate   *Date `gorm:"size:10" json:"end_date,omitempty"` // inclusive

	// GeneratedThrough is the watermark: every date strictly before it has been processed
	GeneratedThrough *Date `gorm:"size:10" json:"generated_through,omitempty"`

	IsActive       bool `gorm:"not null" json:"is_active"`
	IgnoreHolidays bool `gorm:"not null" json:"ignore_holidays"`
}

// BeforeCreate hook to generate UUID
func (s *RecurringSeries) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for RecurringSeries model
func (RecurringSeries) TableName() string {
	return "recurring_series"
}

// HasEndDate reports whether the series is bounded
func (s *RecurringSeries) HasEndDate() bool {
	return s.EndDate != nil && !s.EndDate.IsZero()
}

// Watermark returns the generated-through date, or the zero Date if nothing has been generated
func (s *RecurringSeries) Watermark() Date {
	if s.GeneratedThrough == nil {
		return Date{}
	}
	return *s.GeneratedThrough
}
