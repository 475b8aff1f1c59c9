package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/cityprint/api/internal/domain"
)

// ErrInvalidCutoff signals a malformed same-day cutoff on a product.
var ErrInvalidCutoff = errors.New("eligibility: invalid cutoff")

// SameDayEligibility classifies delivery speed from a product's cutoff
// configuration and the wall clock. The classification is pure; the clock is
// injected for tests.
type SameDayEligibility struct {
	location *time.Location
	now      func() time.Time
}

// SameDayEligibilityDeps bundles the classifier dependencies.
type SameDayEligibilityDeps struct {
	// Timezone is the shop's local timezone name, e.g. Asia/Kolkata.
	Timezone string
	Now      func() time.Time
}

// NewSameDayEligibility constructs the classifier.
func NewSameDayEligibility(deps SameDayEligibilityDeps) (*SameDayEligibility, error) {
	tz := strings.TrimSpace(deps.Timezone)
	if tz == "" {
		tz = "Asia/Kolkata"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("eligibility: load timezone %q: %w", tz, err)
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &SameDayEligibility{location: location, now: now}, nil
}

// Classify returns the delivery speed for the product at the current time.
// Strictly before the cutoff qualifies for same day; at or after the cutoff
// the line becomes next day.
func (e *SameDayEligibility) Classify(product domain.Product) (domain.DeliverySpeed, error) {
	if e == nil {
		return domain.DeliveryStandard, errors.New("eligibility classifier not initialised")
	}
	if !product.SameDayEligible {
		return domain.DeliveryStandard, nil
	}

	cutoffHour, cutoffMinute, err := parseCutoff(product.SameDayCutoff)
	if err != nil {
		return domain.DeliveryStandard, err
	}

	local := e.now().In(e.location)
	nowMinutes := local.Hour()*60 + local.Minute()
	cutoffMinutes := cutoffHour*60 + cutoffMinute

	if nowMinutes < cutoffMinutes {
		return domain.DeliverySameDay, nil
	}
	return domain.DeliveryNextDay, nil
}

func parseCutoff(cutoff string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(cutoff), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCutoff, cutoff)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCutoff, cutoff)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCutoff, cutoff)
	}
	return hour, minute, nil
}
