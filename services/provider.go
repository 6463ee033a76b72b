package services

import (
	"dispatch_app_go/models"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateBusiness stores a new tenant
func CreateBusiness(db *gorm.DB, business *models.Business) error {
	business.Name = strings.TrimSpace(business.Name)
	if business.Name == "" {
		return invalidf("business name is required")
	}
	if business.Timezone == "" {
		business.Timezone = "UTC"
	}
	if err := db.Create(business).Error; err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

// GetBusiness fetches a business by ID
func GetBusiness(db *gorm.DB, id string) (*models.Business, error) {
	var business models.Business
	err := db.First(&business, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "business %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// UpdateSchedulingSettings toggles auto-assignment and grabbing for a business
func UpdateSchedulingSettings(db *gorm.DB, businessID string, autoAssign, grab bool) error {
	result := db.Model(&models.Business{}).
		Where("id = ?", businessID).
		Updates(map[string]interface{}{
			"auto_assign_enabled": autoAssign,
			"grab_enabled":        grab,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update scheduling settings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newSchedulingError(ReasonNotFound, "business %s not found", businessID)
	}
	return nil
}

// CreateProvider validates and stores a provider
func CreateProvider(db *gorm.DB, provider *models.Provider) error {
	provider.Name = strings.TrimSpace(provider.Name)
	if provider.BusinessID == "" || provider.Name == "" {
		return invalidf("business and provider name are required")
	}
	if provider.Status == "" {
		provider.Status = models.ProviderStatusActive
	}
	switch provider.Status {
	case models.ProviderStatusActive, models.ProviderStatusInactive, models.ProviderStatusOnLeave:
	default:
		return invalidf("invalid provider status %q", provider.Status)
	}
	if provider.Rating < 0 || provider.Rating > 5 {
		return invalidf("rating must be between 0 and 5")
	}
	if err := db.Create(provider).Error; err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

// GetProvider fetches a provider of the business with its specialties
func GetProvider(db *gorm.DB, businessID, id string) (*models.Provider, error) {
	var provider models.Provider
	err := db.Preload("Specialties").
		First(&provider, "id = ? AND business_id = ?", id, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "provider %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// ListProviders fetches the providers of a business, optionally by status
func ListProviders(db *gorm.DB, businessID, status string) ([]models.Provider, error) {
	query := db.Preload("Specialties").Where("business_id = ?", businessID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var providers []models.Provider
	if err := query.Order("created_at asc, id asc").Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// UpdateProviderStatus moves a provider between active, inactive and on_leave
func UpdateProviderStatus(db *gorm.DB, businessID, providerID, status string) error {
	switch status {
	case models.ProviderStatusActive, models.ProviderStatusInactive, models.ProviderStatusOnLeave:
	default:
		return invalidf("invalid provider status %q", status)
	}
	result := db.Model(&models.Provider{}).
		Where("id = ? AND business_id = ?", providerID, businessID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update provider status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newSchedulingError(ReasonNotFound, "provider %s not found", providerID)
	}
	return nil
}

// AddProviderSpecialty tags a provider with a service category; repeated tags are ignored
func AddProviderSpecialty(db *gorm.DB, businessID, providerID, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return invalidf("category is required")
	}
	if _, err := GetProvider(db, businessID, providerID); err != nil {
		return err
	}
	specialty := &models.ProviderSpecialty{ProviderID: providerID, Category: category}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(specialty).Error
	if err != nil {
		return fmt.Errorf("failed to add specialty: %w", err)
	}
	return nil
}

// CreateServiceOffering validates and stores a bookable service
func CreateServiceOffering(db *gorm.DB, service *models.ServiceOffering) error {
	service.Name = strings.TrimSpace(service.Name)
	if service.BusinessID == "" || service.Name == "" {
		return invalidf("business and service name are required")
	}
	if service.DurationMinutes <= 0 {
		return invalidf("duration must be positive")
	}
	if service.Price.IsNegative() {
		return invalidf("price must not be negative")
	}
	if err := db.Create(service).Error; err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

// GetServiceOffering fetches a service of the business with its exclusions
func GetServiceOffering(db *gorm.DB, businessID, id string) (*models.ServiceOffering, error) {
	var service models.ServiceOffering
	err := db.Preload("Exclusions").
		First(&service, "id = ? AND business_id = ?", id, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "service %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// ExcludeProviderFromService removes a provider from a service's candidate set
func ExcludeProviderFromService(db *gorm.DB, businessID, serviceID, providerID, reason string) error {
	if _, err := GetServiceOffering(db, businessID, serviceID); err != nil {
		return err
	}
	if _, err := GetProvider(db, businessID, providerID); err != nil {
		return err
	}
	exclusion := &models.ServiceProviderExclusion{
		ServiceID:  serviceID,
		ProviderID: providerID,
		Reason:     reason,
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(exclusion).Error
	if err != nil {
		return fmt.Errorf("failed to exclude provider: %w", err)
	}
	return nil
}

// excludedProviders returns the provider IDs excluded from a service
func excludedProviders(db *gorm.DB, serviceID *string) (map[string]bool, error) {
	excluded := make(map[string]bool)
	if serviceID == nil || *serviceID == "" {
		return excluded, nil
	}
	var ids []string
	err := db.Model(&models.ServiceProviderExclusion{}).
		Where("service_id = ?", *serviceID).
		Pluck("provider_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}
	for _, id := range ids {
		excluded[id] = true
	}
	return excluded, nil
}
