package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessHoliday excludes recurring availability and generated work from a date
type BusinessHoliday struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BusinessID  string `gorm:"type:uuid;index;not null" json:"business_id"`
	HolidayDate Date   `gorm:"size:10;not null;index" json:"holiday_date"`
	Name        string `json:"name"`
	Recurring   bool   `gorm:"not null;default:false" json:"recurring"` // month/day repeats every year
}

// BeforeCreate hook to generate UUID
func (h *BusinessHoliday) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for BusinessHoliday model
func (BusinessHoliday) TableName() string {
	return "business_holidays"
}

// Matches reports whether the holiday falls on date
func (h *BusinessHoliday) Matches(date Date) bool {
	if h.Recurring {
		return h.HolidayDate.SameMonthDay(date)
	}
	return h.HolidayDate.Equal(date)
}
