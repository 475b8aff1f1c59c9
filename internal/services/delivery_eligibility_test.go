package services

import (
	"errors"
	"testing"
	"time"

	domain "github.com/cityprint/api/internal/domain"
)

func newTestEligibility(t *testing.T, now time.Time) *SameDayEligibility {
	t.Helper()
	classifier, err := NewSameDayEligibility(SameDayEligibilityDeps{
		Timezone: "UTC",
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewSameDayEligibility() error = %v", err)
	}
	return classifier
}

func TestClassifyCutoffBoundary(t *testing.T) {
	product := domain.Product{
		ID:              "flyers",
		SameDayEligible: true,
		SameDayCutoff:   "14:00",
	}

	tests := []struct {
		name string
		now  time.Time
		want domain.DeliverySpeed
	}{
		{name: "one minute before cutoff", now: time.Date(2026, 3, 10, 13, 59, 0, 0, time.UTC), want: domain.DeliverySameDay},
		{name: "exactly at cutoff", now: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), want: domain.DeliveryNextDay},
		{name: "after cutoff", now: time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC), want: domain.DeliveryNextDay},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			classifier := newTestEligibility(t, tc.now)
			speed, err := classifier.Classify(product)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if speed != tc.want {
				t.Errorf("Classify() = %q, want %q", speed, tc.want)
			}
		})
	}
}

func TestClassifyIneligibleProduct(t *testing.T) {
	classifier := newTestEligibility(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	speed, err := classifier.Classify(domain.Product{ID: "banner", SameDayEligible: false})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if speed != domain.DeliveryStandard {
		t.Errorf("Classify() = %q, want %q", speed, domain.DeliveryStandard)
	}
}

func TestClassifyRejectsMalformedCutoff(t *testing.T) {
	classifier := newTestEligibility(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	for _, cutoff := range []string{"", "14", "25:00", "14:60", "2pm"} {
		_, err := classifier.Classify(domain.Product{
			ID:              "flyers",
			SameDayEligible: true,
			SameDayCutoff:   cutoff,
		})
		if !errors.Is(err, ErrInvalidCutoff) {
			t.Errorf("Classify(cutoff=%q) error = %v, want ErrInvalidCutoff", cutoff, err)
		}
	}
}
