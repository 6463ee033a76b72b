package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Business is the tenant every scheduling query is scoped by
type Business struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name       string `gorm:"not null" json:"name"`
	Timezone   string `gorm:"not null;default:UTC" json:"timezone"`
	AdminEmail string `json:"admin_email"`

	// Scheduling settings
	AutoAssignEnabled bool `gorm:"not null;default:false" json:"auto_assign_enabled"`
	GrabEnabled       bool `gorm:"not null" json:"grab_enabled"`

	// BookingSeq is bumped at the start of every guarded booking insert so
	// concurrent creators for the same business are serialized by the store
	BookingSeq int64 `gorm:"not null;default:0" json:"-"`
}

// BeforeCreate hook to generate UUID
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Business model
func (Business) TableName() string {
	return "businesses"
}

// Location returns the business time zone, falling back to UTC
func (b *Business) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the business-local calendar date of now
func (b *Business) Today(now time.Time) Date {
	return DateOf(now, b.Location())
}
