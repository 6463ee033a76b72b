package jobs

import (
	"dispatch_app_go/config"
	"dispatch_app_go/models"
	"dispatch_app_go/services"
	"log"
	"time"

	"gorm.io/gorm"
)

// SendBookingReminders emails customers whose confirmed booking is tomorrow
// in their business's time zone. Each booking is claimed with a conditional
// write before sending, so overlapping runs never mail twice.
func SendBookingReminders(database *gorm.DB, cfg *config.Config, now time.Time) int {
	var businesses []models.Business
	if err := database.Find(&businesses).Error; err != nil {
		log.Printf("[CRON] Error fetching businesses for reminders: %v", err)
		return 0
	}

	sent := 0
	for i := range businesses {
		business := &businesses[i]
		tomorrow := business.Today(now).AddDays(1)

		var bookings []models.Booking
		err := database.Preload("Provider").Preload("Service").
			Where("business_id = ? AND scheduled_date = ? AND status = ?", business.ID, tomorrow, models.BookingStatusConfirmed).
			Where("reminder_sent_at IS NULL AND customer_email <> ''").
			Find(&bookings).Error
		if err != nil {
			log.Printf("[CRON] Error fetching bookings of %s for reminders: %v", business.ID, err)
			continue
		}

		for j := range bookings {
			if sendReminder(database, cfg, business, &bookings[j], now) {
				sent++
			}
		}
	}

	log.Printf("[CRON] Booking reminder job completed: %d sent", sent)
	return sent
}

func sendReminder(database *gorm.DB, cfg *config.Config, business *models.Business, booking *models.Booking, now time.Time) bool {
	claim := database.Model(&models.Booking{}).
		Where("id = ? AND reminder_sent_at IS NULL", booking.ID).
		Update("reminder_sent_at", now)
	if claim.Error != nil {
		log.Printf("[CRON] Failed to claim reminder for booking %s: %v", booking.ID, claim.Error)
		return false
	}
	if claim.RowsAffected == 0 {
		return false
	}

	data := services.BookingReminderEmailData{
		CustomerName:    booking.CustomerName,
		BusinessName:    business.Name,
		Date:            booking.ScheduledDate.String(),
		Time:            booking.ScheduledTime.String(),
		DurationMinutes: booking.DurationMinutes,
		Address:         booking.Address,
	}
	if booking.Provider != nil {
		data.ProviderName = booking.Provider.Name
	}
	if booking.Service != nil {
		data.ServiceName = booking.Service.Name
	}

	email, err := services.BuildBookingReminderEmail(booking.CustomerEmail, data)
	if err == nil {
		err = services.SendEmail(cfg, email)
	}
	if err != nil {
		log.Printf("[CRON] Failed to send reminder for booking %s: %v", booking.ID, err)
		// Release the claim so the next run retries
		database.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("reminder_sent_at", nil)
		return false
	}

	log.Printf("[CRON] Sent reminder for booking %s", booking.ID)
	return true
}
