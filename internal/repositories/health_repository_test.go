package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/cityprint/api/internal/domain"
)

func TestNewDependencyHealthRepositoryRequiresChecks(t *testing.T) {
	if _, err := NewDependencyHealthRepository(nil); err == nil {
		t.Fatal("expected error for empty check set")
	}

	_, err := NewDependencyHealthRepository([]DependencyCheck{{Name: " ", Check: func(context.Context) error { return nil }}})
	if err == nil {
		t.Fatal("expected error for unnamed check")
	}

	_, err = NewDependencyHealthRepository([]DependencyCheck{{Name: "firestore"}})
	if err == nil {
		t.Fatal("expected error for check without function")
	}
}

func TestDependencyHealthRepositoryCollect(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "pubsub", Check: func(context.Context) error { return errors.New("broker offline") }},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded report, got %s", report.Status)
	}
	if report.Checks["firestore"].Status != domain.HealthStatusOK {
		t.Fatalf("expected firestore ok, got %s", report.Checks["firestore"].Status)
	}
	if report.Checks["pubsub"].Status != domain.HealthStatusDegraded {
		t.Fatalf("expected pubsub degraded, got %s", report.Checks["pubsub"].Status)
	}
	if report.Checks["pubsub"].Error != "broker offline" {
		t.Fatalf("unexpected error detail: %q", report.Checks["pubsub"].Error)
	}
}

func TestDependencyHealthRepositoryTimeout(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error report, got %s", report.Status)
	}
	if report.Checks["slow"].Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %q", report.Checks["slow"].Detail)
	}
}
