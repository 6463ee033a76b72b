package services

import (
	"errors"
	"fmt"
)

// Reason classifies why a scheduling operation did not go through
type Reason string

const (
	// Validation
	ReasonInvalidRequest Reason = "InvalidRequest"
	ReasonNotFound       Reason = "NotFound"

	// Capacity
	ReasonDailyLimitExceeded    Reason = "DailyLimitExceeded"
	ReasonWeeklyLimitExceeded   Reason = "WeeklyLimitExceeded"
	ReasonMonthlyLimitExceeded  Reason = "MonthlyLimitExceeded"
	ReasonAdvanceWindowExceeded Reason = "AdvanceWindowExceeded"

	// Eligibility
	ReasonOutsideAvailability Reason = "OutsideAvailability"
	ReasonOverlap             Reason = "Overlap"
	ReasonNoEligibleProvider  Reason = "NoEligibleProvider"
	ReasonProviderInactive    Reason = "ProviderInactive"
	ReasonProviderExcluded    Reason = "ProviderExcluded"
	ReasonGrabDisabled        Reason = "GrabDisabled"

	// Concurrency
	ReasonAlreadyAssigned Reason = "AlreadyAssigned"
)

// IsCapacity reports whether the reason comes from the capacity guard
func (r Reason) IsCapacity() bool {
	switch r {
	case ReasonDailyLimitExceeded, ReasonWeeklyLimitExceeded, ReasonMonthlyLimitExceeded, ReasonAdvanceWindowExceeded:
		return true
	}
	return false
}

// IsEligibility reports whether the reason leaves a booking unassigned but actionable
func (r Reason) IsEligibility() bool {
	switch r {
	case ReasonOutsideAvailability, ReasonOverlap, ReasonNoEligibleProvider,
		ReasonProviderInactive, ReasonProviderExcluded, ReasonGrabDisabled:
		return true
	}
	return false
}

// SchedulingError is an expected, typed outcome of a scheduling operation.
// Storage failures are never SchedulingErrors.
type SchedulingError struct {
	Reason  Reason
	Message string
}

func (e *SchedulingError) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is lets errors.Is match on reason alone
func (e *SchedulingError) Is(target error) bool {
	t, ok := target.(*SchedulingError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Reason == e.Reason
}

func newSchedulingError(reason Reason, format string, args ...interface{}) *SchedulingError {
	return &SchedulingError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is
var (
	ErrNotFound              = &SchedulingError{Reason: ReasonNotFound}
	ErrAlreadyAssigned       = &SchedulingError{Reason: ReasonAlreadyAssigned}
	ErrNoEligibleProvider    = &SchedulingError{Reason: ReasonNoEligibleProvider}
	ErrDailyLimitExceeded    = &SchedulingError{Reason: ReasonDailyLimitExceeded}
	ErrWeeklyLimitExceeded   = &SchedulingError{Reason: ReasonWeeklyLimitExceeded}
	ErrMonthlyLimitExceeded  = &SchedulingError{Reason: ReasonMonthlyLimitExceeded}
	ErrAdvanceWindowExceeded = &SchedulingError{Reason: ReasonAdvanceWindowExceeded}
	ErrOutsideAvailability   = &SchedulingError{Reason: ReasonOutsideAvailability}
	ErrOverlap               = &SchedulingError{Reason: ReasonOverlap}
	ErrInvalidRequest        = &SchedulingError{Reason: ReasonInvalidRequest}
)

// ReasonOf extracts the reason of a SchedulingError, or "" for any other error
func ReasonOf(err error) Reason {
	var se *SchedulingError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

func invalidf(format string, args ...interface{}) *SchedulingError {
	return newSchedulingError(ReasonInvalidRequest, format, args...)
}
