package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/repositories"
)

type stubQuoteRepo struct {
	quotes map[string]domain.QuoteRequest
}

func newStubQuoteRepo(quotes ...domain.QuoteRequest) *stubQuoteRepo {
	repo := &stubQuoteRepo{quotes: map[string]domain.QuoteRequest{}}
	for _, quote := range quotes {
		repo.quotes[quote.ID] = quote
	}
	return repo
}

func (s *stubQuoteRepo) Insert(_ context.Context, quote domain.QuoteRequest) error {
	if _, exists := s.quotes[quote.ID]; exists {
		return &fakeRepoError{msg: "document exists", conflict: true}
	}
	s.quotes[quote.ID] = quote
	return nil
}

func (s *stubQuoteRepo) FindByID(_ context.Context, quoteID string) (domain.QuoteRequest, error) {
	quote, ok := s.quotes[quoteID]
	if !ok {
		return domain.QuoteRequest{}, &fakeRepoError{msg: "quote not found", notFound: true}
	}
	return quote, nil
}

func (s *stubQuoteRepo) List(context.Context, repositories.QuoteListFilter) (domain.CursorPage[domain.QuoteRequest], error) {
	items := make([]domain.QuoteRequest, 0, len(s.quotes))
	for _, quote := range s.quotes {
		items = append(items, quote)
	}
	return domain.CursorPage[domain.QuoteRequest]{Items: items}, nil
}

func (s *stubQuoteRepo) UpdateStatus(_ context.Context, quoteID string, status domain.QuoteStatus, _ *time.Time) (domain.QuoteRequest, error) {
	quote, ok := s.quotes[quoteID]
	if !ok {
		return domain.QuoteRequest{}, &fakeRepoError{msg: "quote not found", notFound: true}
	}
	quote.Status = status
	s.quotes[quoteID] = quote
	return quote, nil
}

func newQuoteServiceFixture(t *testing.T, repo *stubQuoteRepo) QuoteService {
	t.Helper()
	service, err := NewQuoteService(QuoteServiceDeps{
		Quotes:  repo,
		Numbers: &stubAllocator{numbers: []string{"QT240115001", "QT240115002"}},
		Clock:   testClock,
	})
	if err != nil {
		t.Fatalf("NewQuoteService() error = %v", err)
	}
	return service
}

func TestCreateQuote(t *testing.T) {
	repo := newStubQuoteRepo()
	service := newQuoteServiceFixture(t, repo)

	quote, err := service.CreateQuote(context.Background(), CreateQuoteCommand{
		CustomerUID: "uid-1",
		Customer:    domain.Customer{Name: "Asha Rao", Email: "asha@example.com"},
		ProductID:   "banner",
		Quantity:    3,
		Message:     "Need a 12ft backdrop with custom artwork",
	})
	if err != nil {
		t.Fatalf("CreateQuote() error = %v", err)
	}
	if quote.QuoteNumber != "QT240115001" {
		t.Errorf("QuoteNumber = %q, want QT240115001", quote.QuoteNumber)
	}
	if quote.Status != domain.QuoteStatusNew {
		t.Errorf("Status = %q, want new", quote.Status)
	}
	if _, ok := repo.quotes[quote.ID]; !ok {
		t.Error("quote not persisted")
	}
}

func TestCreateQuoteValidation(t *testing.T) {
	service := newQuoteServiceFixture(t, newStubQuoteRepo())

	tests := []struct {
		name string
		cmd  CreateQuoteCommand
	}{
		{name: "missing name", cmd: CreateQuoteCommand{Customer: domain.Customer{Email: "a@b.c"}, Quantity: 1}},
		{name: "missing contact", cmd: CreateQuoteCommand{Customer: domain.Customer{Name: "A"}, Quantity: 1}},
		{name: "zero quantity", cmd: CreateQuoteCommand{Customer: domain.Customer{Name: "A", Email: "a@b.c"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateQuote(context.Background(), tc.cmd); !errors.Is(err, ErrQuoteInvalidInput) {
				t.Errorf("CreateQuote() error = %v, want ErrQuoteInvalidInput", err)
			}
		})
	}
}

func TestQuoteLifecycle(t *testing.T) {
	base := domain.QuoteRequest{
		ID:          "QT1",
		QuoteNumber: "QT1",
		CustomerID:  "uid-1",
		Customer:    domain.Customer{Name: "Asha Rao", Email: "asha@example.com"},
		Quantity:    1,
		Status:      domain.QuoteStatusNew,
	}

	t.Run("respond then close", func(t *testing.T) {
		repo := newStubQuoteRepo(base)
		service := newQuoteServiceFixture(t, repo)

		responded, err := service.Respond(context.Background(), "QT1")
		if err != nil {
			t.Fatalf("Respond() error = %v", err)
		}
		if responded.Status != domain.QuoteStatusResponded {
			t.Errorf("Status = %q, want responded", responded.Status)
		}

		closed, err := service.Close(context.Background(), "QT1")
		if err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if closed.Status != domain.QuoteStatusClosed {
			t.Errorf("Status = %q, want closed", closed.Status)
		}
	})

	t.Run("closed quote rejects further moves", func(t *testing.T) {
		closed := base
		closed.Status = domain.QuoteStatusClosed
		service := newQuoteServiceFixture(t, newStubQuoteRepo(closed))
		if _, err := service.Respond(context.Background(), "QT1"); !errors.Is(err, ErrQuoteClosed) {
			t.Errorf("Respond() error = %v, want ErrQuoteClosed", err)
		}
	})

	t.Run("ownership on reads", func(t *testing.T) {
		service := newQuoteServiceFixture(t, newStubQuoteRepo(base))
		if _, err := service.GetQuote(context.Background(), "QT1", OrderReadOptions{CustomerUID: "uid-2"}); !errors.Is(err, ErrQuoteNotFound) {
			t.Errorf("GetQuote() error = %v, want ErrQuoteNotFound", err)
		}
		if _, err := service.GetQuote(context.Background(), "QT1", OrderReadOptions{Staff: true}); err != nil {
			t.Errorf("GetQuote() error = %v", err)
		}
	})
}
