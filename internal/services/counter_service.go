package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cityprint/api/internal/repositories"
)

var (
	// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
	ErrCounterInvalidInput = errors.New("counter: invalid input")
	// ErrCounterExhausted indicates the counter cannot increment further.
	ErrCounterExhausted = errors.New("counter: exhausted")
)

// NumberAllocator mints date-scoped, human-readable order and quote numbers.
type NumberAllocator interface {
	NextOrderNumber(ctx context.Context) (string, error)
	NextQuoteNumber(ctx context.Context) (string, error)
}

// CounterServiceDeps bundles collaborators required to construct a counter service.
type CounterServiceDeps struct {
	Repository  repositories.CounterRepository
	Clock       func() time.Time
	Timezone    string
	OrderPrefix string
	QuotePrefix string
}

type counterService struct {
	repo        repositories.CounterRepository
	clock       func() time.Time
	location    *time.Location
	orderPrefix string
	quotePrefix string
}

// NewCounterService constructs a NumberAllocator backed by atomic counters.
// Counters are keyed per local date so sequences reset at midnight; the
// formatted number is <prefix><YY><MM><DD><NNN> with a 3-digit daily sequence.
func NewCounterService(deps CounterServiceDeps) (NumberAllocator, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}

	tz := strings.TrimSpace(deps.Timezone)
	if tz == "" {
		tz = "Asia/Kolkata"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("counter service: load timezone %q: %w", tz, err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	orderPrefix := strings.TrimSpace(deps.OrderPrefix)
	if orderPrefix == "" {
		orderPrefix = "CP"
	}
	quotePrefix := strings.TrimSpace(deps.QuotePrefix)
	if quotePrefix == "" {
		quotePrefix = "QT"
	}

	return &counterService{
		repo:        deps.Repository,
		clock:       clock,
		location:    location,
		orderPrefix: orderPrefix,
		quotePrefix: quotePrefix,
	}, nil
}

func (s *counterService) NextOrderNumber(ctx context.Context) (string, error) {
	return s.nextNumber(ctx, "orders", s.orderPrefix)
}

func (s *counterService) NextQuoteNumber(ctx context.Context) (string, error) {
	return s.nextNumber(ctx, "quotes", s.quotePrefix)
}

func (s *counterService) nextNumber(ctx context.Context, scope, prefix string) (string, error) {
	local := s.clock().In(s.location)
	dateKey := local.Format("2006-01-02")

	seq, err := s.repo.Next(ctx, scope+":"+dateKey, 1)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			switch counterErr.Code {
			case repositories.CounterErrorInvalidInput:
				return "", fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
			case repositories.CounterErrorExhausted:
				return "", fmt.Errorf("%w: %s", ErrCounterExhausted, counterErr.Message)
			}
		}
		return "", err
	}

	return fmt.Sprintf("%s%s%03d", prefix, local.Format("060102"), seq), nil
}
