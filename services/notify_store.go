package services

import (
	"context"
	"dispatch_app_go/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// StoreChannel persists events as admin feed notifications
type StoreChannel struct {
	DB *gorm.DB
}

func NewStoreChannel(db *gorm.DB) *StoreChannel {
	return &StoreChannel{DB: db}
}

func (c *StoreChannel) Name() string { return "store" }

func (c *StoreChannel) Deliver(ctx context.Context, event Event) error {
	notification := &models.Notification{
		BusinessID: event.BusinessID,
		BookingID:  stringPtr(event.BookingID),
		SeriesID:   stringPtr(event.SeriesID),
		ProviderID: stringPtr(event.ProviderID),
		Kind:       event.Kind,
		Summary:    event.Summary,
		OccurredAt: event.OccurredAt,
	}
	if err := c.DB.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// NotificationService reads and acknowledges the admin feed
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// List returns the newest notifications of a business
func (s *NotificationService) List(businessID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := s.DB.Where("business_id = ?", businessID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var notifications []models.Notification
	err := query.Order("occurred_at DESC, created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(businessID, notificationID string, now time.Time) error {
	result := s.DB.Model(&models.Notification{}).
		Where("id = ? AND business_id = ? AND read_at IS NULL", notificationID, businessID).
		Update("read_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		s.DB.Model(&models.Notification{}).
			Where("id = ? AND business_id = ?", notificationID, businessID).
			Count(&count)
		if count == 0 {
			return newSchedulingError(ReasonNotFound, "notification %s not found", notificationID)
		}
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(businessID string, now time.Time) error {
	return s.DB.Model(&models.Notification{}).
		Where("business_id = ? AND read_at IS NULL", businessID).
		Update("read_at", now).Error
}

func (s *NotificationService) UnreadCount(businessID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("business_id = ? AND read_at IS NULL", businessID).
		Count(&count).Error
	return count, err
}
