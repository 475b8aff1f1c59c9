package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cityprint/api/internal/repositories"
)

type stubCounterRepo struct {
	counts map[string]int64
	err    error
	lastID string
}

func (s *stubCounterRepo) Next(_ context.Context, counterID string, step int64) (int64, error) {
	s.lastID = counterID
	if s.err != nil {
		return 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	if step == 0 {
		step = 1
	}
	s.counts[counterID] += step
	return s.counts[counterID], nil
}

func newTestAllocator(t *testing.T, repo repositories.CounterRepository, now time.Time) NumberAllocator {
	t.Helper()
	allocator, err := NewCounterService(CounterServiceDeps{
		Repository:  repo,
		Clock:       func() time.Time { return now },
		Timezone:    "UTC",
		OrderPrefix: "CP",
		QuotePrefix: "QT",
	})
	if err != nil {
		t.Fatalf("NewCounterService() error = %v", err)
	}
	return allocator
}

func TestNextOrderNumberFormat(t *testing.T) {
	repo := &stubCounterRepo{counts: map[string]int64{"orders:2024-01-15": 6}}
	allocator := newTestAllocator(t, repo, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))

	number, err := allocator.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber() error = %v", err)
	}
	if number != "CP240115007" {
		t.Errorf("NextOrderNumber() = %q, want %q", number, "CP240115007")
	}
	if repo.lastID != "orders:2024-01-15" {
		t.Errorf("counter id = %q, want %q", repo.lastID, "orders:2024-01-15")
	}

	next, err := allocator.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber() error = %v", err)
	}
	if next != "CP240115008" {
		t.Errorf("NextOrderNumber() = %q, want %q", next, "CP240115008")
	}
}

func TestNextNumberScopesByDateAndKind(t *testing.T) {
	repo := &stubCounterRepo{}
	jan15 := time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)
	jan16 := time.Date(2024, 1, 16, 0, 1, 0, 0, time.UTC)

	first, err := newTestAllocator(t, repo, jan15).NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber() error = %v", err)
	}
	second, err := newTestAllocator(t, repo, jan16).NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber() error = %v", err)
	}
	if first != "CP240115001" || second != "CP240116001" {
		t.Errorf("sequence did not reset across dates: %q then %q", first, second)
	}

	quote, err := newTestAllocator(t, repo, jan16).NextQuoteNumber(context.Background())
	if err != nil {
		t.Fatalf("NextQuoteNumber() error = %v", err)
	}
	if quote != "QT240116001" {
		t.Errorf("NextQuoteNumber() = %q, want %q", quote, "QT240116001")
	}
}

func TestNextNumberMapsCounterErrors(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	exhausted := &stubCounterRepo{err: &repositories.CounterError{
		Code:    repositories.CounterErrorExhausted,
		Message: "counter at max value",
	}}
	if _, err := newTestAllocator(t, exhausted, now).NextOrderNumber(context.Background()); !errors.Is(err, ErrCounterExhausted) {
		t.Errorf("NextOrderNumber() error = %v, want ErrCounterExhausted", err)
	}

	invalid := &stubCounterRepo{err: &repositories.CounterError{
		Code:    repositories.CounterErrorInvalidInput,
		Message: "bad id",
	}}
	if _, err := newTestAllocator(t, invalid, now).NextOrderNumber(context.Background()); !errors.Is(err, ErrCounterInvalidInput) {
		t.Errorf("NextOrderNumber() error = %v, want ErrCounterInvalidInput", err)
	}
}
