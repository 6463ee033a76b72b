package services

import (
	"context"
	"dispatch_app_go/config"
	"dispatch_app_go/models"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssignmentService selects and commits providers for unassigned bookings
type AssignmentService struct {
	DB       *gorm.DB
	Weights  config.ScoringConfig
	Notifier Notifier
}

func NewAssignmentService(db *gorm.DB, weights config.ScoringConfig, notifier Notifier) *AssignmentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AssignmentService{DB: db, Weights: weights, Notifier: notifier}
}

// AssignmentResult is a committed assignment
type AssignmentResult struct {
	Booking    *models.Booking    `json:"booking"`
	Provider   *models.Provider   `json:"provider"`
	Assignment *models.Assignment `json:"assignment"`
}

// EligibilityReport lists every candidate of a booking, best first
type EligibilityReport struct {
	BookingID  string      `json:"booking_id"`
	Candidates []Candidate `json:"candidates"`
	WinnerID   string      `json:"winner_id,omitempty"`
}

// AutoAssign picks the best eligible provider for a pending booking and
// commits it with a conditional write. Losing a race is reported as
// AlreadyAssigned and is not retried.
func (s *AssignmentService) AutoAssign(ctx context.Context, businessID, bookingID string, now time.Time) (*AssignmentResult, error) {
	db := s.DB.WithContext(ctx)

	booking, err := loadAssignable(db, businessID, bookingID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.evaluate(db, booking)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || !candidates[0].Eligible {
		log.Printf("[ASSIGN] No eligible provider for booking %s: %s", booking.ID, summarizeRejections(candidates))
		return nil, newSchedulingError(ReasonNoEligibleProvider,
			"no eligible provider for booking %s (%s)", booking.ID, summarizeRejections(candidates))
	}

	winner := candidates[0]
	return s.commit(ctx, booking, &winner.Provider, *winner.Score, models.AssignmentSourceAuto, now)
}

// Grab lets a provider claim a pool booking, subject to the same hard filters
func (s *AssignmentService) Grab(ctx context.Context, businessID, bookingID, providerID string, now time.Time) (*AssignmentResult, error) {
	db := s.DB.WithContext(ctx)

	business, err := GetBusiness(db, businessID)
	if err != nil {
		return nil, err
	}
	if !business.GrabEnabled {
		return nil, newSchedulingError(ReasonGrabDisabled, "grabbing is disabled for %s", business.Name)
	}

	booking, err := loadAssignable(db, businessID, bookingID)
	if err != nil {
		return nil, err
	}
	provider, err := GetProvider(db, businessID, providerID)
	if err != nil {
		return nil, err
	}
	excluded, err := excludedProviders(db, booking.ServiceID)
	if err != nil {
		return nil, err
	}
	loads, err := providerWorkloads(db, businessID, booking.ScheduledDate)
	if err != nil {
		return nil, err
	}

	candidate, err := s.evaluateProvider(db, booking, provider, excluded, loads)
	if err != nil {
		return nil, err
	}
	if !candidate.Eligible {
		return nil, newSchedulingError(candidate.Reason, "%s", candidate.Detail)
	}
	return s.commit(ctx, booking, provider, *candidate.Score, models.AssignmentSourceGrab, now)
}

// PreviewEligibility reports every candidate's filters and score without committing
func (s *AssignmentService) PreviewEligibility(ctx context.Context, businessID, bookingID string, now time.Time) (*EligibilityReport, error) {
	db := s.DB.WithContext(ctx)

	booking, err := loadAssignable(db, businessID, bookingID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.evaluate(db, booking)
	if err != nil {
		return nil, err
	}

	report := &EligibilityReport{BookingID: booking.ID, Candidates: candidates}
	if len(candidates) > 0 && candidates[0].Eligible {
		report.WinnerID = candidates[0].Provider.ID
	}
	return report, nil
}

// loadAssignable fetches a booking that is still waiting for a provider
func loadAssignable(db *gorm.DB, businessID, bookingID string) (*models.Booking, error) {
	booking, err := GetBooking(db, businessID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsAssigned() {
		return nil, newSchedulingError(ReasonAlreadyAssigned, "booking %s is already assigned", booking.ID)
	}
	if booking.Status != models.BookingStatusPending {
		return nil, newSchedulingError(ReasonNotFound, "booking %s is %s and cannot be assigned", booking.ID, booking.Status)
	}
	return booking, nil
}

// evaluate runs the hard filters and scores every provider of the business
func (s *AssignmentService) evaluate(db *gorm.DB, booking *models.Booking) ([]Candidate, error) {
	providers, err := ListProviders(db, booking.BusinessID, "")
	if err != nil {
		return nil, err
	}
	excluded, err := excludedProviders(db, booking.ServiceID)
	if err != nil {
		return nil, err
	}
	loads, err := providerWorkloads(db, booking.BusinessID, booking.ScheduledDate)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(providers))
	for i := range providers {
		c, err := s.evaluateProvider(db, booking, &providers[i], excluded, loads)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	rankCandidates(candidates)
	return candidates, nil
}

func (s *AssignmentService) evaluateProvider(db *gorm.DB, booking *models.Booking, provider *models.Provider, excluded map[string]bool, loads map[string]Workload) (Candidate, error) {
	c := Candidate{Provider: *provider}

	if !provider.IsAssignable() {
		c.Reason = ReasonProviderInactive
		c.Detail = fmt.Sprintf("provider %s is %s", provider.Name, provider.Status)
		return c, nil
	}
	if excluded[provider.ID] {
		c.Reason = ReasonProviderExcluded
		c.Detail = fmt.Sprintf("provider %s is excluded from this service", provider.Name)
		return c, nil
	}

	q := FitQuery{
		BusinessID:       booking.BusinessID,
		ProviderID:       provider.ID,
		Date:             booking.ScheduledDate,
		Start:            booking.ScheduledTime,
		DurationMinutes:  booking.DurationMinutes,
		ExcludeBookingID: booking.ID,
	}
	fit, err := Fits(db, q)
	if err != nil {
		return c, err
	}
	if !fit.OK() {
		c.Reason = fit.Reason
		c.Detail = fit.Err(q).Error()
		return c, nil
	}

	category := ""
	if booking.Service != nil {
		category = booking.Service.Category
	}
	score := ScoreCandidate(s.Weights, provider, category, loads[provider.ID])
	c.Eligible = true
	c.Score = &score
	return c, nil
}

// commit writes the provider onto the booking only if it is still pending,
// unassigned and free of overlaps for that provider, then records the
// assignment in the same transaction
func (s *AssignmentService) commit(ctx context.Context, booking *models.Booking, provider *models.Provider, score ScoreBreakdown, source string, now time.Time) (*AssignmentResult, error) {
	db := s.DB.WithContext(ctx)
	breakdown, err := json.Marshal(score)
	if err != nil {
		return nil, err
	}
	assignment := &models.Assignment{
		BusinessID: booking.BusinessID,
		BookingID:  booking.ID,
		ProviderID: provider.ID,
		Score:      score.Total,
		Breakdown:  datatypes.JSON(breakdown),
		Source:     source,
		AssignedAt: now,
	}

	var won bool
	err = db.Transaction(func(tx *gorm.DB) error {
		claimed, err := claimProvider(tx, booking, provider.ID, source, true)
		if err != nil || !claimed {
			return err
		}
		won = true
		if err := tx.Create(assignment).Error; err != nil {
			return fmt.Errorf("failed to record assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !won {
		return nil, s.explainLostCommit(db, booking, provider)
	}

	updated, err := GetBooking(db, booking.BusinessID, booking.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("[ASSIGN] Booking %s %s to provider %s (score %.2f)", booking.ID, source, provider.ID, score.Total)
	s.Notifier.Notify(ctx, assignedEvent(updated, provider, source, now))

	return &AssignmentResult{Booking: updated, Provider: provider, Assignment: assignment}, nil
}

// explainLostCommit re-reads the booking after a zero-row commit
func (s *AssignmentService) explainLostCommit(db *gorm.DB, booking *models.Booking, provider *models.Provider) error {
	current, err := GetBooking(db, booking.BusinessID, booking.ID)
	if err != nil {
		return err
	}
	if current.IsAssigned() {
		return newSchedulingError(ReasonAlreadyAssigned, "booking %s was assigned concurrently", booking.ID)
	}
	if current.Status != models.BookingStatusPending {
		return newSchedulingError(ReasonNotFound, "booking %s is %s and cannot be assigned", booking.ID, current.Status)
	}
	return newSchedulingError(ReasonOverlap, "provider %s took an overlapping booking concurrently", provider.ID)
}

func summarizeRejections(candidates []Candidate) string {
	if len(candidates) == 0 {
		return "business has no providers"
	}
	counts := make(map[Reason]int)
	var order []Reason
	for _, c := range candidates {
		if c.Eligible {
			continue
		}
		if counts[c.Reason] == 0 {
			order = append(order, c.Reason)
		}
		counts[c.Reason]++
	}
	parts := make([]string, 0, len(order))
	for _, r := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", r, counts[r]))
	}
	return strings.Join(parts, ", ")
}
