package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider status constants
const (
	ProviderStatusActive   = "active"
	ProviderStatusInactive = "inactive"
	ProviderStatusOnLeave  = "on_leave"
)

// Provider is a field worker who can be assigned bookings
type Provider struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BusinessID string `gorm:"type:uuid;index;not null" json:"business_id"`
	Name       string `gorm:"not null" json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Status     string `gorm:"size:20;not null;default:active;index" json:"status"`

	Rating      float64 `gorm:"not null;default:0" json:"rating"` // 0-5 average
	RatingCount int     `gorm:"not null;default:0" json:"rating_count"`
	Priority    int     `gorm:"not null;default:0" json:"priority"` // Manual tie-break, higher wins

	Specialties []ProviderSpecialty `gorm:"foreignKey:ProviderID" json:"specialties,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Provider model
func (Provider) TableName() string {
	return "providers"
}

// IsAssignable checks the provider status hard filter
func (p *Provider) IsAssignable() bool {
	return p.Status == ProviderStatusActive
}

// HasSpecialty reports whether the provider is specialized in the category
func (p *Provider) HasSpecialty(category string) bool {
	if category == "" {
		return false
	}
	for _, s := range p.Specialties {
		if s.Category == category {
			return true
		}
	}
	return false
}

// ProviderSpecialty tags a provider with a service category
type ProviderSpecialty struct {
	ID         string `gorm:"type:uuid;primarykey" json:"id"`
	ProviderID string `gorm:"type:uuid;not null;uniqueIndex:idx_provider_specialty" json:"provider_id"`
	Category   string `gorm:"size:100;not null;uniqueIndex:idx_provider_specialty" json:"category"`
}

func (s *ProviderSpecialty) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (ProviderSpecialty) TableName() string {
	return "provider_specialties"
}
