package services

import (
	"dispatch_app_go/models"
	"encoding/json"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	ActorID    string
	ActorRole  string
	BusinessID string
	IPAddress  string
}

var auditWG sync.WaitGroup

// LogAuditEvent creates a new audit log entry asynchronously
func LogAuditEvent(
	db *gorm.DB,
	ctx AuditContext,
	action models.AuditAction,
	resourceType string,
	resourceID string,
	description string,
	oldValues interface{},
	newValues interface{},
) {
	auditWG.Add(1)
	// Run in goroutine to avoid blocking the request
	go func() {
		defer auditWG.Done()

		auditLog := models.AuditLog{
			ActorID:      ctx.ActorID,
			ActorRole:    ctx.ActorRole,
			BusinessID:   ctx.BusinessID,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Action:       action,
			Description:  description,
			OldValues:    encodeAuditValues(oldValues),
			NewValues:    encodeAuditValues(newValues),
			IPAddress:    ctx.IPAddress,
		}

		if err := db.Create(&auditLog).Error; err != nil {
			log.Printf("[AUDIT] Failed to create audit log: %v", err)
		}
	}()
}

// WaitForAuditLogs blocks until pending audit writes finish
func WaitForAuditLogs() {
	auditWG.Wait()
}

func encodeAuditValues(values interface{}) string {
	if values == nil {
		return ""
	}
	b, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(b)
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(db *gorm.DB, businessID, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("business_id = ? AND resource_type = ? AND resource_id = ?", businessID, resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	ActorID      string
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
}

// GetBusinessAuditLogs retrieves paginated audit logs for a business
func GetBusinessAuditLogs(db *gorm.DB, businessID string, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}

	query := db.Model(&models.AuditLog{}).Where("business_id = ?", businessID)
	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}
