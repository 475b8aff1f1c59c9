package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/notifications"
	"github.com/cityprint/api/internal/repositories"
)

var (
	// ErrQuoteInvalidInput signals the caller provided invalid quote data.
	ErrQuoteInvalidInput = errors.New("quote: invalid input")
	// ErrQuoteNotFound indicates the quote request could not be located.
	ErrQuoteNotFound = errors.New("quote: not found")
	// ErrQuoteClosed indicates the quote request already reached a final state.
	ErrQuoteClosed = errors.New("quote: already closed")
)

// QuoteService handles custom-work enquiries outside the checkout pricing path.
type QuoteService interface {
	CreateQuote(ctx context.Context, cmd CreateQuoteCommand) (domain.QuoteRequest, error)
	GetQuote(ctx context.Context, quoteID string, opts OrderReadOptions) (domain.QuoteRequest, error)
	ListQuotes(ctx context.Context, filter repositories.QuoteListFilter) (domain.CursorPage[domain.QuoteRequest], error)
	Respond(ctx context.Context, quoteID string) (domain.QuoteRequest, error)
	Close(ctx context.Context, quoteID string) (domain.QuoteRequest, error)
}

// QuoteServiceDeps bundles collaborators required to construct the quote service.
type QuoteServiceDeps struct {
	Quotes     repositories.QuoteRepository
	Numbers    NumberAllocator
	Dispatcher notifications.Dispatcher
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type quoteService struct {
	quotes     repositories.QuoteRepository
	numbers    NumberAllocator
	dispatcher notifications.Dispatcher
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewQuoteService constructs the quote service.
func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	if deps.Quotes == nil {
		return nil, errors.New("quote service: quote repository is required")
	}
	if deps.Numbers == nil {
		return nil, errors.New("quote service: number allocator is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = notifications.NoopDispatcher{}
	}

	return &quoteService{
		quotes:     deps.Quotes,
		numbers:    deps.Numbers,
		dispatcher: dispatcher,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateQuoteCommand carries a new custom-work enquiry.
type CreateQuoteCommand struct {
	CustomerUID    string
	Customer       domain.Customer
	ProductID      string
	Quantity       int
	Specifications []domain.Specification
	Message        string
}

func (s *quoteService) CreateQuote(ctx context.Context, cmd CreateQuoteCommand) (domain.QuoteRequest, error) {
	if strings.TrimSpace(cmd.Customer.Name) == "" {
		return domain.QuoteRequest{}, fmt.Errorf("%w: customer name is required", ErrQuoteInvalidInput)
	}
	if strings.TrimSpace(cmd.Customer.Email) == "" && strings.TrimSpace(cmd.Customer.Phone) == "" {
		return domain.QuoteRequest{}, fmt.Errorf("%w: customer email or phone is required", ErrQuoteInvalidInput)
	}
	if cmd.Quantity < 1 {
		return domain.QuoteRequest{}, fmt.Errorf("%w: quantity must be at least 1", ErrQuoteInvalidInput)
	}

	number, err := s.numbers.NextQuoteNumber(ctx)
	if err != nil {
		return domain.QuoteRequest{}, fmt.Errorf("quote: allocate number: %w", err)
	}

	now := s.clock()
	quote := domain.QuoteRequest{
		ID:             number,
		QuoteNumber:    number,
		CustomerID:     strings.TrimSpace(cmd.CustomerUID),
		Customer:       cmd.Customer,
		ProductID:      strings.TrimSpace(cmd.ProductID),
		Quantity:       cmd.Quantity,
		Specifications: cloneSpecifications(cmd.Specifications),
		Message:        strings.TrimSpace(cmd.Message),
		Status:         domain.QuoteStatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.quotes.Insert(ctx, quote); err != nil {
		return domain.QuoteRequest{}, s.mapRepositoryError(err)
	}

	s.dispatcher.Dispatch(ctx, notifications.OrderEvent{
		Type:          notifications.EventQuoteRequestCreated,
		QuoteID:       quote.ID,
		OrderNumber:   quote.QuoteNumber,
		CustomerName:  quote.Customer.Name,
		CustomerEmail: quote.Customer.Email,
		CustomerPhone: quote.Customer.Phone,
		OccurredAt:    now,
	})

	return quote, nil
}

func (s *quoteService) GetQuote(ctx context.Context, quoteID string, opts OrderReadOptions) (domain.QuoteRequest, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return domain.QuoteRequest{}, fmt.Errorf("%w: quote id is required", ErrQuoteInvalidInput)
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return domain.QuoteRequest{}, s.mapRepositoryError(err)
	}

	if !opts.Staff {
		uid := strings.TrimSpace(opts.CustomerUID)
		if uid == "" || quote.CustomerID != uid {
			return domain.QuoteRequest{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, quoteID)
		}
	}

	return quote, nil
}

func (s *quoteService) ListQuotes(ctx context.Context, filter repositories.QuoteListFilter) (domain.CursorPage[domain.QuoteRequest], error) {
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = defaultOrderPageSize
	}
	if filter.Pagination.PageSize > maxOrderPageSize {
		filter.Pagination.PageSize = maxOrderPageSize
	}
	page, err := s.quotes.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.QuoteRequest]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *quoteService) Respond(ctx context.Context, quoteID string) (domain.QuoteRequest, error) {
	return s.moveStatus(ctx, quoteID, domain.QuoteStatusResponded)
}

func (s *quoteService) Close(ctx context.Context, quoteID string) (domain.QuoteRequest, error) {
	return s.moveStatus(ctx, quoteID, domain.QuoteStatusClosed)
}

func (s *quoteService) moveStatus(ctx context.Context, quoteID string, target domain.QuoteStatus) (domain.QuoteRequest, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return domain.QuoteRequest{}, fmt.Errorf("%w: quote id is required", ErrQuoteInvalidInput)
	}

	current, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return domain.QuoteRequest{}, s.mapRepositoryError(err)
	}
	if current.Status == domain.QuoteStatusClosed {
		return domain.QuoteRequest{}, fmt.Errorf("%w: %s", ErrQuoteClosed, quoteID)
	}

	var respondedAt *time.Time
	if target == domain.QuoteStatusResponded {
		now := s.clock()
		respondedAt = &now
	}
	updated, err := s.quotes.UpdateStatus(ctx, quoteID, target, respondedAt)
	if err != nil {
		return domain.QuoteRequest{}, s.mapRepositoryError(err)
	}
	return updated, nil
}

func (s *quoteService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrQuoteNotFound, err)
	}
	return err
}
