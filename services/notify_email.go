package services

import (
	"context"
	"dispatch_app_go/config"
	"dispatch_app_go/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var eventTitles = map[string]string{
	models.NotificationKindAssigned:           "Booking assigned",
	models.NotificationKindGrabbed:            "Booking grabbed",
	models.NotificationKindGenerationDeferred: "Recurring booking deferred",
	models.NotificationKindCapacityExceeded:   "Capacity limit reached",
}

// EmailChannel mails events: assignments go to the provider, capacity and
// deferral alerts go to the business admin (or ADMIN_ALERT_EMAIL)
type EmailChannel struct {
	DB     *gorm.DB
	Config *config.Config
	Send   func(cfg *config.Config, email *Email) error
}

func NewEmailChannel(db *gorm.DB, cfg *config.Config) *EmailChannel {
	return &EmailChannel{DB: db, Config: cfg, Send: SendEmail}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, event Event) error {
	db := c.DB.WithContext(ctx)
	business, err := GetBusiness(db, event.BusinessID)
	if err != nil {
		return err
	}

	to, err := c.recipient(db, business, event)
	if err != nil {
		return err
	}
	if to == "" {
		return nil
	}

	title, ok := eventTitles[event.Kind]
	if !ok {
		title = event.Kind
	}
	email, err := BuildSchedulingAlertEmail(to, SchedulingAlertEmailData{
		Title:        title,
		BusinessName: business.Name,
		Summary:      event.Summary,
		OccurredAt:   event.OccurredAt.In(business.Location()).Format("Mon, 02 Jan 2006 15:04 MST"),
		Link:         c.Config.AppURL,
	})
	if err != nil {
		return err
	}
	if err := c.Send(c.Config, email); err != nil {
		return fmt.Errorf("failed to email %s event: %w", event.Kind, err)
	}
	return nil
}

func (c *EmailChannel) recipient(db *gorm.DB, business *models.Business, event Event) (string, error) {
	switch event.Kind {
	case models.NotificationKindAssigned, models.NotificationKindGrabbed:
		if event.ProviderID == "" {
			return "", nil
		}
		provider, err := GetProvider(db, business.ID, event.ProviderID)
		if err != nil {
			return "", err
		}
		return provider.Email, nil
	default:
		if business.AdminEmail != "" {
			return business.AdminEmail, nil
		}
		return c.Config.AdminAlertEmail, nil
	}
}

// formatEventTime is used by channels that need a stable wire timestamp
func formatEventTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
