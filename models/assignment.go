package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assignment records which provider was committed to a booking and why
type Assignment struct {
	ID         string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	BusinessID string    `gorm:"type:uuid;index;not null" json:"business_id"`
	BookingID  string    `gorm:"type:uuid;index;not null" json:"booking_id"`
	ProviderID string    `gorm:"type:uuid;index;not null" json:"provider_id"`

	Score      float64        `json:"score"`
	Breakdown  datatypes.JSON `json:"breakdown,omitempty"` // per-factor score contributions
	Source     string         `gorm:"size:20;not null" json:"source"`
	AssignedAt time.Time      `gorm:"not null;index" json:"assigned_at"`

	Booking  *Booking  `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
	Provider *Provider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

// BeforeCreate hook to generate UUID
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Assignment model
func (Assignment) TableName() string {
	return "assignments"
}

// DeferredOccurrence is a series date that could not be materialized (e.g. a
// capacity limit was hit). It stays visible to admins until resolved.
type DeferredOccurrence struct {
	ID         string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	BusinessID string    `gorm:"type:uuid;index;not null" json:"business_id"`
	SeriesID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_deferred_series_date" json:"series_id"`
	Date       Date      `gorm:"size:10;not null;uniqueIndex:idx_deferred_series_date" json:"date"`
	Reason     string    `gorm:"size:50;not null" json:"reason"`
	Detail     string    `json:"detail,omitempty"`

	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolvedBookingID *string    `gorm:"type:uuid" json:"resolved_booking_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (d *DeferredOccurrence) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (DeferredOccurrence) TableName() string {
	return "deferred_occurrences"
}

func (d *DeferredOccurrence) IsResolved() bool {
	return d.ResolvedAt != nil
}
