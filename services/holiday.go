package services

import (
	"dispatch_app_go/models"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
)

// HolidayCalendar loads business holidays, optionally through an expiring LRU
// keyed by business. Writes through this type invalidate the entry; writes on
// other nodes become visible once the TTL lapses.
type HolidayCalendar struct {
	cache *expirable.LRU[string, []models.BusinessHoliday]
}

// Holidays is the calendar used by the resolver and generator. It starts
// uncached; ConfigureHolidayCache enables caching at startup.
var Holidays = &HolidayCalendar{}

// ConfigureHolidayCache replaces the package calendar. size <= 0 disables caching.
func ConfigureHolidayCache(size int, ttl time.Duration) {
	if size <= 0 {
		log.Println("[HOLIDAY] Holiday cache disabled")
		Holidays = &HolidayCalendar{}
		return
	}
	Holidays = &HolidayCalendar{
		cache: expirable.NewLRU[string, []models.BusinessHoliday](size, nil, ttl),
	}
	log.Printf("[HOLIDAY] Holiday cache enabled (size=%d, ttl=%s)", size, ttl)
}

// Load returns every holiday of a business
func (c *HolidayCalendar) Load(db *gorm.DB, businessID string) ([]models.BusinessHoliday, error) {
	if c.cache != nil {
		if holidays, ok := c.cache.Get(businessID); ok {
			return holidays, nil
		}
	}

	var holidays []models.BusinessHoliday
	err := db.Where("business_id = ?", businessID).
		Order("holiday_date asc").
		Find(&holidays).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}

	if c.cache != nil {
		c.cache.Add(businessID, holidays)
	}
	return holidays, nil
}

// Invalidate drops the cached holidays of a business
func (c *HolidayCalendar) Invalidate(businessID string) {
	if c.cache != nil {
		c.cache.Remove(businessID)
	}
}

// IsHoliday checks whether date matches a holiday exactly or by recurring month/day
func (c *HolidayCalendar) IsHoliday(db *gorm.DB, businessID string, date models.Date) (bool, error) {
	holidays, err := c.Load(db, businessID)
	if err != nil {
		return false, err
	}
	return matchesAnyHoliday(holidays, date), nil
}

func matchesAnyHoliday(holidays []models.BusinessHoliday, date models.Date) bool {
	for i := range holidays {
		if holidays[i].Matches(date) {
			return true
		}
	}
	return false
}

// ListHolidays fetches the holidays of a business
func ListHolidays(db *gorm.DB, businessID string) ([]models.BusinessHoliday, error) {
	return Holidays.Load(db, businessID)
}

// CreateHoliday validates and stores a holiday
func CreateHoliday(db *gorm.DB, holiday *models.BusinessHoliday) error {
	if holiday.BusinessID == "" {
		return invalidf("business is required")
	}
	if holiday.HolidayDate.IsZero() {
		return invalidf("holiday date is required")
	}
	holiday.Name = strings.TrimSpace(holiday.Name)

	if err := db.Create(holiday).Error; err != nil {
		return fmt.Errorf("failed to create holiday: %w", err)
	}
	Holidays.Invalidate(holiday.BusinessID)
	return nil
}

// DeleteHoliday removes a holiday of a business
func DeleteHoliday(db *gorm.DB, businessID, id string) error {
	result := db.Where("business_id = ?", businessID).Delete(&models.BusinessHoliday{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete holiday: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newSchedulingError(ReasonNotFound, "holiday %s not found", id)
	}
	Holidays.Invalidate(businessID)
	return nil
}
