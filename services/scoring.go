package services

import (
	"dispatch_app_go/config"
	"dispatch_app_go/models"
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"
)

const scoreEpsilon = 1e-9

// ScoreBreakdown is a candidate's composite score and the factors behind it
type ScoreBreakdown struct {
	NormalizedRating float64 `json:"normalized_rating"` // 0-100
	RatingPoints     float64 `json:"rating_points"`
	SameDayBookings  int64   `json:"same_day_bookings"`
	SameWeekBookings int64   `json:"same_week_bookings"`
	WorkloadPenalty  float64 `json:"workload_penalty"`
	SpecialtyMatch   bool    `json:"specialty_match"`
	SpecialtyBonus   float64 `json:"specialty_bonus"`
	Total            float64 `json:"total"`
}

// Workload is a provider's active booking count on a date and in its ISO week
type Workload struct {
	Day  int64
	Week int64
}

// ScoreCandidate computes the weighted score of a provider for a booking of the given category
func ScoreCandidate(w config.ScoringConfig, provider *models.Provider, category string, load Workload) ScoreBreakdown {
	normalized := w.NeutralRating
	if provider.RatingCount > 0 {
		normalized = math.Max(0, math.Min(100, provider.Rating/5*100))
	}

	s := ScoreBreakdown{
		NormalizedRating: normalized,
		RatingPoints:     w.RatingWeight * normalized,
		SameDayBookings:  load.Day,
		SameWeekBookings: load.Week,
		WorkloadPenalty:  float64(load.Day)*w.WorkloadDayWeight + float64(load.Week)*w.WorkloadWeekWeight,
		SpecialtyMatch:   provider.HasSpecialty(category),
	}
	if s.SpecialtyMatch {
		s.SpecialtyBonus = w.SpecializationWeight * 100
	}
	s.Total = s.RatingPoints - s.WorkloadPenalty + s.SpecialtyBonus
	return s
}

// Candidate is one provider's evaluation for a booking
type Candidate struct {
	Provider models.Provider `json:"provider"`
	Eligible bool            `json:"eligible"`
	Reason   Reason          `json:"reason,omitempty"`
	Detail   string          `json:"detail,omitempty"`
	Score    *ScoreBreakdown `json:"score,omitempty"`
}

// outranks orders eligible candidates: score desc, then priority desc, then
// earlier provider creation, then ID so the order is total
func outranks(a, b *Candidate) bool {
	if a.Eligible != b.Eligible {
		return a.Eligible
	}
	if a.Score != nil && b.Score != nil {
		if diff := a.Score.Total - b.Score.Total; math.Abs(diff) > scoreEpsilon {
			return diff > 0
		}
	}
	if a.Provider.Priority != b.Provider.Priority {
		return a.Provider.Priority > b.Provider.Priority
	}
	if !a.Provider.CreatedAt.Equal(b.Provider.CreatedAt) {
		return a.Provider.CreatedAt.Before(b.Provider.CreatedAt)
	}
	return a.Provider.ID < b.Provider.ID
}

// rankCandidates sorts candidates best first; ineligible ones trail
func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return outranks(&candidates[i], &candidates[j])
	})
}

// providerWorkloads counts active bookings per provider on date and in its ISO week
func providerWorkloads(db *gorm.DB, businessID string, date models.Date) (map[string]Workload, error) {
	weekStart := date.WeekStart()
	var rows []struct {
		ProviderID string
		Day        int64
		Week       int64
	}
	err := db.Model(&models.Booking{}).
		Select("provider_id, SUM(CASE WHEN scheduled_date = ? THEN 1 ELSE 0 END) AS day, COUNT(*) AS week", date).
		Where("business_id = ? AND provider_id IS NOT NULL", businessID).
		Where("status IN ?", models.ActiveBookingStatuses).
		Where("scheduled_date >= ? AND scheduled_date <= ?", weekStart, weekStart.AddDays(6)).
		Group("provider_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count provider workload: %w", err)
	}

	loads := make(map[string]Workload, len(rows))
	for _, r := range rows {
		loads[r.ProviderID] = Workload{Day: r.Day, Week: r.Week}
	}
	return loads, nil
}
