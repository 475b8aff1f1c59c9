package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/cityprint/api/internal/domain"
	pfirestore "github.com/cityprint/api/internal/platform/firestore"
	"github.com/cityprint/api/internal/repositories"
)

const quotesCollection = "quotes"

type quoteDocument struct {
	QuoteNumber    string                  `firestore:"quoteNumber"`
	CustomerID     string                  `firestore:"customerId,omitempty"`
	Customer       customerDocument        `firestore:"customer"`
	ProductID      string                  `firestore:"productId,omitempty"`
	Quantity       int                     `firestore:"quantity"`
	Specifications []specificationDocument `firestore:"specifications,omitempty"`
	Message        string                  `firestore:"message,omitempty"`
	Status         string                  `firestore:"status"`
	CreatedAt      time.Time               `firestore:"createdAt"`
	UpdatedAt      time.Time               `firestore:"updatedAt"`
	RespondedAt    *time.Time              `firestore:"respondedAt,omitempty"`
}

// QuoteRepository implements repositories.QuoteRepository backed by Firestore.
type QuoteRepository struct {
	provider *pfirestore.Provider
	quotes   *pfirestore.BaseRepository[quoteDocument]
}

// NewQuoteRepository constructs a Firestore-backed quote repository.
func NewQuoteRepository(provider *pfirestore.Provider) (*QuoteRepository, error) {
	if provider == nil {
		return nil, errors.New("quote repository requires firestore provider")
	}
	return &QuoteRepository{
		provider: provider,
		quotes:   pfirestore.NewBaseRepository[quoteDocument](provider, quotesCollection, nil),
	}, nil
}

// Insert creates the quote document keyed by its quote number.
func (r *QuoteRepository) Insert(ctx context.Context, quote domain.QuoteRequest) error {
	if r == nil || r.provider == nil {
		return errors.New("quote repository not initialised")
	}
	id := strings.TrimSpace(quote.ID)
	if id == "" {
		return errors.New("quote repository: quote id is required")
	}
	_, err := r.quotes.Create(ctx, id, quoteToDocument(quote))
	return err
}

// FindByID loads a single quote request.
func (r *QuoteRepository) FindByID(ctx context.Context, quoteID string) (domain.QuoteRequest, error) {
	if r == nil || r.provider == nil {
		return domain.QuoteRequest{}, errors.New("quote repository not initialised")
	}
	doc, err := r.quotes.Get(ctx, strings.TrimSpace(quoteID))
	if err != nil {
		return domain.QuoteRequest{}, err
	}
	return quoteFromDocument(doc.ID, doc.Data), nil
}

// List returns quote requests newest first.
func (r *QuoteRepository) List(ctx context.Context, filter repositories.QuoteListFilter) (domain.CursorPage[domain.QuoteRequest], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.QuoteRequest]{}, errors.New("quote repository not initialised")
	}

	coll, err := r.quotes.CollectionRef(ctx)
	if err != nil {
		return domain.CursorPage[domain.QuoteRequest]{}, err
	}

	query := coll.Query
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
		query = query.Limit(fetchLimit)
	}

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.QuoteRequest]{}, fmt.Errorf("quotes.list: invalid page token: %w", err)
		}
		query = query.StartAfter(tokenTime, tokenID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var quotes []domain.QuoteRequest
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.QuoteRequest]{}, pfirestore.WrapError("quotes.list", err)
		}
		var doc quoteDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.QuoteRequest]{}, fmt.Errorf("decode quote %s: %w", snap.Ref.ID, err)
		}
		quotes = append(quotes, quoteFromDocument(snap.Ref.ID, doc))
	}

	nextToken := ""
	if limit > 0 && len(quotes) == fetchLimit {
		last := quotes[len(quotes)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		quotes = quotes[:len(quotes)-1]
	}

	return domain.CursorPage[domain.QuoteRequest]{
		Items:         quotes,
		NextPageToken: nextToken,
	}, nil
}

// UpdateStatus sets the quote status and optional response timestamp.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, quoteID string, status domain.QuoteStatus, respondedAt *time.Time) (domain.QuoteRequest, error) {
	if r == nil || r.provider == nil {
		return domain.QuoteRequest{}, errors.New("quote repository not initialised")
	}
	id := strings.TrimSpace(quoteID)
	if id == "" {
		return domain.QuoteRequest{}, errors.New("quote repository: quote id is required")
	}

	now := time.Now().UTC()
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: now},
	}
	if respondedAt != nil {
		updates = append(updates, firestore.Update{Path: "respondedAt", Value: respondedAt.UTC()})
	}

	if _, err := r.quotes.Update(ctx, id, updates); err != nil {
		return domain.QuoteRequest{}, err
	}
	return r.FindByID(ctx, id)
}

func quoteToDocument(quote domain.QuoteRequest) quoteDocument {
	return quoteDocument{
		QuoteNumber:    quote.QuoteNumber,
		CustomerID:     quote.CustomerID,
		Customer:       customerDocument(quote.Customer),
		ProductID:      quote.ProductID,
		Quantity:       quote.Quantity,
		Specifications: specificationsToDocuments(quote.Specifications),
		Message:        quote.Message,
		Status:         string(quote.Status),
		CreatedAt:      quote.CreatedAt.UTC(),
		UpdatedAt:      quote.UpdatedAt.UTC(),
	}
}

func quoteFromDocument(id string, doc quoteDocument) domain.QuoteRequest {
	return domain.QuoteRequest{
		ID:             id,
		QuoteNumber:    doc.QuoteNumber,
		CustomerID:     doc.CustomerID,
		Customer:       domain.Customer(doc.Customer),
		ProductID:      doc.ProductID,
		Quantity:       doc.Quantity,
		Specifications: specificationsFromDocuments(doc.Specifications),
		Message:        doc.Message,
		Status:         domain.QuoteStatus(doc.Status),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.QuoteRepository = (*QuoteRepository)(nil)
