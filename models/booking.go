package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking status constants
const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCanceled   = "canceled"
)

// Assignment source constants
const (
	AssignmentSourceNone   = "none"
	AssignmentSourceManual = "manual"
	AssignmentSourceAuto   = "auto"
	AssignmentSourceGrab   = "grab"
)

// ActiveBookingStatuses are the statuses that hold a provider's time and count against limits
var ActiveBookingStatuses = []string{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusInProgress,
}

// Booking is a concrete job on a calendar date
type Booking struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BusinessID string  `gorm:"type:uuid;index:idx_booking_business_date;not null" json:"business_id"`
	ProviderID *string `gorm:"type:uuid;index:idx_booking_provider_date" json:"provider_id,omitempty"`
	SeriesID   *string `gorm:"type:uuid;uniqueIndex:idx_booking_series_date" json:"series_id,omitempty"`
	ServiceID  *string `gorm:"type:uuid;index" json:"service_id,omitempty"`

	// Customer snapshot
	CustomerID    string `gorm:"size:100;index" json:"customer_id"`
	CustomerName  string `gorm:"size:200;not null" json:"customer_name"`
	CustomerEmail string `gorm:"size:200" json:"customer_email,omitempty"`
	Address       string `gorm:"size:500" json:"address"`
	Notes         string `gorm:"type:text" json:"notes,omitempty"`

	// Schedule
	ScheduledDate   Date  `gorm:"size:10;not null;index:idx_booking_business_date;index:idx_booking_provider_date;uniqueIndex:idx_booking_series_date" json:"scheduled_date"`
	ScheduledTime   Clock `gorm:"size:5;not null" json:"scheduled_time"`
	EndTime         Clock `gorm:"size:5;not null" json:"end_time"` // derived from ScheduledTime + DurationMinutes
	DurationMinutes int   `gorm:"not null" json:"duration_minutes"`

	Status           string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	AssignmentSource string          `gorm:"size:20;not null;default:none" json:"assignment_source"`
	Price            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`

	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	CanceledAt     *time.Time `json:"canceled_at,omitempty"`

	// Relationships
	Provider *Provider       `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Service  *ServiceOffering `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

// BeforeCreate hook to generate UUID and fill derived fields
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
	if b.AssignmentSource == "" {
		b.AssignmentSource = AssignmentSourceNone
	}
	b.EndTime = b.ScheduledTime.Add(b.DurationMinutes)
	return nil
}

// TableName specifies the table name for Booking model
func (Booking) TableName() string {
	return "bookings"
}

// Window returns the booked interval
func (b *Booking) Window() Window {
	return Window{Start: b.ScheduledTime, End: b.ScheduledTime.Add(b.DurationMinutes)}
}

// IsActive checks whether the booking holds provider time
func (b *Booking) IsActive() bool {
	return IsActiveBookingStatus(b.Status)
}

// IsAssigned checks whether a provider has been committed
func (b *Booking) IsAssigned() bool {
	return b.ProviderID != nil && *b.ProviderID != ""
}

// IsCancelable checks if the booking can be canceled
func (b *Booking) IsCancelable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// IsActiveBookingStatus checks if the status is one of the active statuses
func IsActiveBookingStatus(status string) bool {
	for _, s := range ActiveBookingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidBookingStatus checks if the status is valid
func IsValidBookingStatus(status string) bool {
	return IsActiveBookingStatus(status) || status == BookingStatusCompleted || status == BookingStatusCanceled
}
