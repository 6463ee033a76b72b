package services

import (
	"context"
	"dispatch_app_go/models"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// errDuplicateOccurrence marks a series date that already has a booking
var errDuplicateOccurrence = errors.New("series already has a booking on this date")

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup from customer-entered text
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// BookingService owns booking intake and lifecycle
type BookingService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewBookingService(db *gorm.DB, notifier Notifier) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{DB: db, Notifier: notifier}
}

// Create validates the booking, runs the capacity guard and stores it. When
// ProviderID is set the provider is committed manually, subject to the same
// availability and overlap checks as automatic assignment.
func (s *BookingService) Create(ctx context.Context, booking *models.Booking, now time.Time) error {
	db := s.DB.WithContext(ctx)

	business, err := GetBusiness(db, booking.BusinessID)
	if err != nil {
		return err
	}
	if err := prepareBooking(db, booking, business.Today(now)); err != nil {
		return err
	}

	err = insertGuarded(db, booking, now)
	if ReasonOf(err).IsCapacity() {
		log.Printf("[CAPACITY] Rejected booking for %s on %s: %v", booking.BusinessID, booking.ScheduledDate, err)
		s.Notifier.Notify(ctx, Event{
			Kind:       models.NotificationKindCapacityExceeded,
			BusinessID: booking.BusinessID,
			Summary:    fmt.Sprintf("Booking for %s on %s was rejected: %v", booking.CustomerName, booking.ScheduledDate, err),
			OccurredAt: now,
		})
	}
	return err
}

// prepareBooking applies service defaults, sanitizes text and validates
func prepareBooking(db *gorm.DB, booking *models.Booking, today models.Date) error {
	booking.CustomerName = sanitizeText(booking.CustomerName)
	booking.Address = sanitizeText(booking.Address)
	booking.Notes = sanitizeText(booking.Notes)
	booking.CustomerEmail = strings.TrimSpace(booking.CustomerEmail)

	if booking.BusinessID == "" {
		return invalidf("business is required")
	}
	if booking.CustomerName == "" {
		return invalidf("customer name is required")
	}
	if booking.ScheduledDate.IsZero() {
		return invalidf("scheduled date is required")
	}
	if booking.ScheduledDate.Before(today) {
		return invalidf("scheduled date %s is in the past", booking.ScheduledDate)
	}

	if booking.ServiceID != nil && *booking.ServiceID != "" {
		service, err := GetServiceOffering(db, booking.BusinessID, *booking.ServiceID)
		if err != nil {
			return err
		}
		if !service.IsActive {
			return invalidf("service %s is not active", service.Name)
		}
		if booking.DurationMinutes == 0 {
			booking.DurationMinutes = service.DurationMinutes
		}
		if booking.Price.IsZero() {
			booking.Price = service.Price
		}
	} else {
		booking.ServiceID = nil
	}

	if booking.DurationMinutes <= 0 {
		return invalidf("duration must be positive")
	}
	if !booking.ScheduledTime.Valid() || booking.ScheduledTime.Add(booking.DurationMinutes) > models.EndOfDay {
		return invalidf("booking must start and end on %s", booking.ScheduledDate)
	}
	if booking.Price.IsNegative() {
		return invalidf("price must not be negative")
	}

	if booking.ProviderID != nil && *booking.ProviderID == "" {
		booking.ProviderID = nil
	}
	if booking.ProviderID != nil {
		booking.Status = models.BookingStatusConfirmed
		booking.AssignmentSource = models.AssignmentSourceManual
	} else {
		booking.Status = models.BookingStatusPending
		booking.AssignmentSource = models.AssignmentSourceNone
	}
	booking.EndTime = booking.ScheduledTime.Add(booking.DurationMinutes)
	return nil
}

// insertGuarded stores a prepared booking. The transaction first bumps the
// business's booking_seq, which serializes every guarded insert of that
// business, so the capacity counts it reads cannot go stale before the insert.
func insertGuarded(db *gorm.DB, booking *models.Booking, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Business{}).
			Where("id = ?", booking.BusinessID).
			UpdateColumn("booking_seq", gorm.Expr("booking_seq + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to lock business for booking: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return newSchedulingError(ReasonNotFound, "business %s not found", booking.BusinessID)
		}

		if booking.SeriesID != nil {
			var count int64
			err := tx.Model(&models.Booking{}).
				Where("series_id = ? AND scheduled_date = ?", *booking.SeriesID, booking.ScheduledDate).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check series duplicates: %w", err)
			}
			if count > 0 {
				return errDuplicateOccurrence
			}
		}

		if err := CheckCapacity(tx, booking.BusinessID, booking.ScheduledDate, now); err != nil {
			return err
		}

		if booking.ProviderID != nil {
			provider, err := GetProvider(tx, booking.BusinessID, *booking.ProviderID)
			if err != nil {
				return err
			}
			if !provider.IsAssignable() {
				return newSchedulingError(ReasonProviderInactive, "provider %s is %s", provider.Name, provider.Status)
			}
			q := FitQuery{
				BusinessID:      booking.BusinessID,
				ProviderID:      provider.ID,
				Date:            booking.ScheduledDate,
				Start:           booking.ScheduledTime,
				DurationMinutes: booking.DurationMinutes,
			}
			fit, err := Fits(tx, q)
			if err != nil {
				return err
			}
			if !fit.OK() {
				return fit.Err(q)
			}
		}

		// a manual provider is claimed after the insert with the same
		// conditional write the assignment commit uses, so a grab that lands
		// between Fits and here cannot leave the provider double booked
		providerID := booking.ProviderID
		if providerID != nil {
			booking.ProviderID = nil
			booking.Status = models.BookingStatusPending
			booking.AssignmentSource = models.AssignmentSourceNone
		}
		err := tx.Create(booking).Error
		if providerID != nil {
			booking.ProviderID = providerID
			booking.Status = models.BookingStatusConfirmed
			booking.AssignmentSource = models.AssignmentSourceManual
		}
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateOccurrence
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}

		if providerID != nil {
			claimed, err := claimProvider(tx, booking, *providerID, models.AssignmentSourceManual, false)
			if err != nil {
				return err
			}
			if !claimed {
				return newSchedulingError(ReasonOverlap, "provider %s took an overlapping booking", *providerID)
			}
			assignment := &models.Assignment{
				BusinessID: booking.BusinessID,
				BookingID:  booking.ID,
				ProviderID: *booking.ProviderID,
				Source:     models.AssignmentSourceManual,
				AssignedAt: now,
			}
			if err := tx.Create(assignment).Error; err != nil {
				return fmt.Errorf("failed to record assignment: %w", err)
			}
		}
		return nil
	})
}

// GetBooking fetches a booking of the business with its provider and service
func GetBooking(db *gorm.DB, businessID, id string) (*models.Booking, error) {
	var booking models.Booking
	err := db.Preload("Provider").Preload("Service").
		First(&booking, "id = ? AND business_id = ?", id, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "booking %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// BookingFilters narrows ListBookings
type BookingFilters struct {
	ProviderID string
	Status     string
	Unassigned bool
}

// ListBookings returns the bookings of a business with from <= date <= to
func ListBookings(db *gorm.DB, businessID string, from, to models.Date, filters BookingFilters) ([]models.Booking, error) {
	query := db.Preload("Provider").
		Where("business_id = ? AND scheduled_date >= ? AND scheduled_date <= ?", businessID, from, to)
	if filters.ProviderID != "" {
		query = query.Where("provider_id = ?", filters.ProviderID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Unassigned {
		query = query.Where("provider_id IS NULL")
	}

	var bookings []models.Booking
	err := query.Order("scheduled_date asc, scheduled_time asc, id asc").Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListUnassigned returns the pool of pending bookings nobody has taken yet
func ListUnassigned(db *gorm.DB, businessID string, from, to models.Date) ([]models.Booking, error) {
	return ListBookings(db, businessID, from, to, BookingFilters{
		Status:     models.BookingStatusPending,
		Unassigned: true,
	})
}

// Cancel moves a pending or confirmed booking to canceled, freeing its slot
func (s *BookingService) Cancel(ctx context.Context, businessID, id string, now time.Time) (*models.Booking, error) {
	db := s.DB.WithContext(ctx)
	result := db.Model(&models.Booking{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Where("status IN ?", []string{models.BookingStatusPending, models.BookingStatusConfirmed}).
		Updates(map[string]interface{}{
			"status":      models.BookingStatusCanceled,
			"canceled_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", result.Error)
	}

	booking, err := GetBooking(db, businessID, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 && booking.Status != models.BookingStatusCanceled {
		return nil, invalidf("booking in status %s cannot be canceled", booking.Status)
	}
	return booking, nil
}
