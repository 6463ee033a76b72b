package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification kinds
const (
	NotificationKindAssigned           = "assigned"
	NotificationKindGrabbed            = "grabbed"
	NotificationKindGenerationDeferred = "generation-deferred"
	NotificationKindCapacityExceeded   = "capacity-exceeded"
)

// Notification is an admin-visible scheduling event
type Notification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	BusinessID string  `gorm:"type:uuid;not null;index" json:"business_id"`
	BookingID  *string `gorm:"type:uuid" json:"booking_id,omitempty"`
	SeriesID   *string `gorm:"type:uuid" json:"series_id,omitempty"`
	ProviderID *string `gorm:"type:uuid" json:"provider_id,omitempty"`

	Kind       string    `gorm:"size:40;not null;index" json:"kind"`
	Summary    string    `gorm:"type:text;not null" json:"summary"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`

	// Read tracking
	ReadAt *time.Time `json:"read_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
