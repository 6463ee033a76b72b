package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleShape distinguishes the three kinds of availability rule by which date
// fields are set
type RuleShape int

const (
	// RuleShapeRecurring applies to every date with a matching weekday
	RuleShapeRecurring RuleShape = iota
	// RuleShapeBoundedRecurring applies to matching weekdays in [effective, expiry]
	RuleShapeBoundedRecurring
	// RuleShapeSingleDate applies only on the effective date
	RuleShapeSingleDate
)

func (s RuleShape) String() string {
	switch s {
	case RuleShapeRecurring:
		return "recurring"
	case RuleShapeBoundedRecurring:
		return "bounded_recurring"
	case RuleShapeSingleDate:
		return "single_date"
	default:
		return "unknown"
	}
}

// IsRecurring reports whether the shape repeats weekly (and so yields to holidays)
func (s RuleShape) IsRecurring() bool {
	return s == RuleShapeRecurring || s == RuleShapeBoundedRecurring
}

// AvailabilityRule states that a provider is open (or explicitly blocked)
// during [StartTime, EndTime) on dates matching its weekday and shape
type AvailabilityRule struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BusinessID  string `gorm:"type:uuid;index;not null" json:"business_id"`
	ProviderID  string `gorm:"type:uuid;index:idx_rule_provider_day;not null" json:"provider_id"`
	DayOfWeek   int    `gorm:"not null;index:idx_rule_provider_day" json:"day_of_week"` // 0=Sunday...6=Saturday
	StartTime   Clock  `gorm:"size:5;not null" json:"start_time"`
	EndTime     Clock  `gorm:"size:5;not null" json:"end_time"`
	IsAvailable bool   `gorm:"not null" json:"is_available"` // false = explicit block

	EffectiveDate *Date  `gorm:"size:10" json:"effective_date,omitempty"`
	ExpiryDate    *Date  `gorm:"size:10" json:"expiry_date,omitempty"` // only meaningful with EffectiveDate
	Note          string `json:"note,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *AvailabilityRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for AvailabilityRule model
func (AvailabilityRule) TableName() string {
	return "availability_rules"
}

func (r *AvailabilityRule) hasEffective() bool {
	return r.EffectiveDate != nil && !r.EffectiveDate.IsZero()
}

func (r *AvailabilityRule) hasExpiry() bool {
	return r.ExpiryDate != nil && !r.ExpiryDate.IsZero()
}

// Shape derives the rule kind from its date fields. An expiry without an
// effective date carries no meaning and is ignored.
func (r *AvailabilityRule) Shape() RuleShape {
	switch {
	case !r.hasEffective():
		return RuleShapeRecurring
	case r.hasExpiry():
		return RuleShapeBoundedRecurring
	default:
		return RuleShapeSingleDate
	}
}

// AppliesOn reports whether the rule's weekday and shape select date
func (r *AvailabilityRule) AppliesOn(date Date) bool {
	if time.Weekday(r.DayOfWeek) != date.Weekday() {
		return false
	}
	switch r.Shape() {
	case RuleShapeRecurring:
		return true
	case RuleShapeBoundedRecurring:
		return !date.Before(*r.EffectiveDate) && !date.After(*r.ExpiryDate)
	case RuleShapeSingleDate:
		return date.Equal(*r.EffectiveDate)
	default:
		return false
	}
}

// Window returns the rule's time interval
func (r *AvailabilityRule) Window() Window {
	return Window{Start: r.StartTime, End: r.EndTime}
}

// DayName returns the name of the day
func (r *AvailabilityRule) DayName() string {
	if r.DayOfWeek >= 0 && r.DayOfWeek < 7 {
		return time.Weekday(r.DayOfWeek).String()
	}
	return ""
}
