package services

import (
	"dispatch_app_go/models"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// MaxAvailabilityRangeDays bounds ResolveAvailabilityRange
const MaxAvailabilityRangeDays = 62

// Default working hours: Mon-Fri 09:00-17:00
var defaultAvailabilityDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// DayAvailability is the resolved availability of one date
type DayAvailability struct {
	Date    models.Date     `json:"date"`
	Holiday bool            `json:"holiday"`
	Windows []models.Window `json:"windows"`
}

// ResolveAvailability computes a provider's open windows on date. The result
// is sorted by start time and pairwise non-overlapping; an empty slice means
// the provider is unavailable that day.
func ResolveAvailability(db *gorm.DB, businessID, providerID string, date models.Date) ([]models.Window, error) {
	var rules []models.AvailabilityRule
	err := db.Where("business_id = ? AND provider_id = ? AND day_of_week = ?",
		businessID, providerID, int(date.Weekday())).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load availability rules: %w", err)
	}
	if len(rules) == 0 {
		return []models.Window{}, nil
	}

	holiday, err := Holidays.IsHoliday(db, businessID, date)
	if err != nil {
		return nil, err
	}

	return resolveWindows(rules, date, holiday), nil
}

// ResolveAvailabilityRange resolves every date in [from, to] for the provider portal
func ResolveAvailabilityRange(db *gorm.DB, businessID, providerID string, from, to models.Date) ([]DayAvailability, error) {
	if to.Before(from) {
		return nil, invalidf("range end %s is before start %s", to, from)
	}
	if from.DaysUntil(to) >= MaxAvailabilityRangeDays {
		return nil, invalidf("range may span at most %d days", MaxAvailabilityRangeDays)
	}

	rules, err := GetProviderRules(db, businessID, providerID)
	if err != nil {
		return nil, err
	}
	holidays, err := Holidays.Load(db, businessID)
	if err != nil {
		return nil, err
	}

	days := make([]DayAvailability, 0, from.DaysUntil(to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		holiday := matchesAnyHoliday(holidays, d)
		days = append(days, DayAvailability{
			Date:    d,
			Holiday: holiday,
			Windows: resolveWindows(rules, d, holiday),
		})
	}
	return days, nil
}

// resolveWindows unions the open rules that apply on date, drops
// recurring-shaped openings on holidays (single-date overrides are kept), and
// subtracts every applicable block.
func resolveWindows(rules []models.AvailabilityRule, date models.Date, holiday bool) []models.Window {
	var open, blocked []models.Window
	for i := range rules {
		rule := &rules[i]
		if !rule.AppliesOn(date) {
			continue
		}
		if !rule.IsAvailable {
			blocked = append(blocked, rule.Window())
			continue
		}

		switch rule.Shape() {
		case models.RuleShapeRecurring, models.RuleShapeBoundedRecurring:
			if holiday {
				continue
			}
		case models.RuleShapeSingleDate:
			// An explicit override for this exact date is deliberate, holiday or not
		}
		open = append(open, rule.Window())
	}

	return subtractWindows(mergeWindows(open), mergeWindows(blocked))
}

// mergeWindows sorts and coalesces overlapping or touching windows
func mergeWindows(windows []models.Window) []models.Window {
	if len(windows) == 0 {
		return []models.Window{}
	}
	sorted := make([]models.Window, 0, len(windows))
	for _, w := range windows {
		if w.Start < w.End {
			sorted = append(sorted, w)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]models.Window, 0, len(sorted))
	for _, w := range sorted {
		last := len(merged) - 1
		if last >= 0 && w.Start <= merged[last].End {
			if w.End > merged[last].End {
				merged[last].End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// subtractWindows removes blocks from open windows; both inputs must be merged
func subtractWindows(open, blocks []models.Window) []models.Window {
	if len(blocks) == 0 {
		return open
	}
	result := make([]models.Window, 0, len(open))
	for _, w := range open {
		remaining := []models.Window{w}
		for _, b := range blocks {
			next := remaining[:0:0]
			for _, r := range remaining {
				if !r.Overlaps(b) {
					next = append(next, r)
					continue
				}
				if r.Start < b.Start {
					next = append(next, models.Window{Start: r.Start, End: b.Start})
				}
				if b.End < r.End {
					next = append(next, models.Window{Start: b.End, End: r.End})
				}
			}
			remaining = next
		}
		result = append(result, remaining...)
	}
	return result
}

// ValidateAvailabilityRule checks a rule and normalizes single-date rules to
// the weekday of their date
func ValidateAvailabilityRule(rule *models.AvailabilityRule) error {
	if rule.BusinessID == "" || rule.ProviderID == "" {
		return invalidf("business and provider are required")
	}
	if !rule.StartTime.Valid() || !rule.EndTime.Valid() {
		return invalidf("times must be between 00:00 and 24:00")
	}
	if rule.StartTime >= rule.EndTime {
		return invalidf("end time must be after start time")
	}

	hasEffective := rule.EffectiveDate != nil && !rule.EffectiveDate.IsZero()
	hasExpiry := rule.ExpiryDate != nil && !rule.ExpiryDate.IsZero()
	if hasExpiry && !hasEffective {
		return invalidf("expiry date requires an effective date")
	}
	if hasExpiry && rule.ExpiryDate.Before(*rule.EffectiveDate) {
		return invalidf("expiry date must not be before effective date")
	}

	switch rule.Shape() {
	case models.RuleShapeSingleDate:
		rule.DayOfWeek = int(rule.EffectiveDate.Weekday())
	case models.RuleShapeRecurring, models.RuleShapeBoundedRecurring:
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return invalidf("day of week must be between 0 (Sunday) and 6 (Saturday)")
		}
	}
	return nil
}

// CreateAvailabilityRule validates and stores a rule for a provider of the business
func CreateAvailabilityRule(db *gorm.DB, rule *models.AvailabilityRule) error {
	if err := ValidateAvailabilityRule(rule); err != nil {
		return err
	}
	if _, err := GetProvider(db, rule.BusinessID, rule.ProviderID); err != nil {
		return err
	}
	if err := db.Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}
	return nil
}

// CreateDefaultAvailability seeds the standard working week for a provider
func CreateDefaultAvailability(db *gorm.DB, businessID, providerID string) error {
	for _, day := range defaultAvailabilityDays {
		rule := &models.AvailabilityRule{
			BusinessID:  businessID,
			ProviderID:  providerID,
			DayOfWeek:   int(day),
			StartTime:   models.MustClock("09:00"),
			EndTime:     models.MustClock("17:00"),
			IsAvailable: true,
		}
		if err := db.Create(rule).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetProviderRules fetches all rules of a provider
func GetProviderRules(db *gorm.DB, businessID, providerID string) ([]models.AvailabilityRule, error) {
	var rules []models.AvailabilityRule
	err := db.Where("business_id = ? AND provider_id = ?", businessID, providerID).
		Order("day_of_week, start_time").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load availability rules: %w", err)
	}
	return rules, nil
}

// GetAvailabilityRule fetches a single rule of the business
func GetAvailabilityRule(db *gorm.DB, businessID, id string) (*models.AvailabilityRule, error) {
	var rule models.AvailabilityRule
	err := db.First(&rule, "id = ? AND business_id = ?", id, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newSchedulingError(ReasonNotFound, "availability rule %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateAvailabilityRule validates and saves an existing rule
func UpdateAvailabilityRule(db *gorm.DB, rule *models.AvailabilityRule) error {
	if err := ValidateAvailabilityRule(rule); err != nil {
		return err
	}
	if err := db.Save(rule).Error; err != nil {
		return fmt.Errorf("failed to update availability rule: %w", err)
	}
	return nil
}

// RetireAvailabilityRule soft deletes a rule: it stops applying but the row
// is kept for history
func RetireAvailabilityRule(db *gorm.DB, businessID, id string) error {
	result := db.Where("business_id = ?", businessID).Delete(&models.AvailabilityRule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to retire availability rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newSchedulingError(ReasonNotFound, "availability rule %s not found", id)
	}
	return nil
}

// HasAvailabilityRules checks if a provider has any rules configured
func HasAvailabilityRules(db *gorm.DB, businessID, providerID string) (bool, error) {
	var count int64
	err := db.Model(&models.AvailabilityRule{}).
		Where("business_id = ? AND provider_id = ?", businessID, providerID).
		Count(&count).Error
	return count > 0, err
}
