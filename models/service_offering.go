package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceOffering is a bookable service of a business (e.g. "Deep clean")
type ServiceOffering struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BusinessID      string          `gorm:"type:uuid;index;not null" json:"business_id"`
	Name            string          `gorm:"not null" json:"name"`
	Category        string          `gorm:"size:100;index" json:"category"`
	DurationMinutes int             `gorm:"not null;default:60" json:"duration_minutes"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	IsActive        bool            `gorm:"not null" json:"is_active"`

	Exclusions []ServiceProviderExclusion `gorm:"foreignKey:ServiceID" json:"exclusions,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *ServiceOffering) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for ServiceOffering model
func (ServiceOffering) TableName() string {
	return "service_offerings"
}

// ServiceProviderExclusion removes a provider from the candidate set of a service
type ServiceProviderExclusion struct {
	ID         string `gorm:"type:uuid;primarykey" json:"id"`
	ServiceID  string `gorm:"type:uuid;not null;uniqueIndex:idx_service_exclusion" json:"service_id"`
	ProviderID string `gorm:"type:uuid;not null;uniqueIndex:idx_service_exclusion" json:"provider_id"`
	Reason     string `json:"reason,omitempty"`
}

func (e *ServiceProviderExclusion) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (ServiceProviderExclusion) TableName() string {
	return "service_provider_exclusions"
}
