package repositories

import (
	"context"
	"time"

	domain "github.com/cityprint/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Orders() OrderRepository
	Quotes() QuoteRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository serves the catalog of printable products.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category   string
	ActiveOnly bool
	Pagination domain.Pagination
}

// OrderRepository persists orders and enforces compare-and-swap semantics on
// status mutations.
type OrderRepository interface {
	// Insert creates the order document keyed by its order number and fails
	// with a conflict error when the number is already taken.
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// Mutate loads the order inside a transaction, applies fn, and persists
	// the result. fn errors abort the transaction and are returned verbatim.
	Mutate(ctx context.Context, orderID string, fn func(domain.Order) (domain.Order, error)) (domain.Order, error)
}

// OrderListFilter narrows order listings for customer and back-office views.
type OrderListFilter struct {
	CustomerUID   string
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	PlacedAfter   *time.Time
	PlacedBefore  *time.Time
	Pagination    domain.Pagination
}

// QuoteRepository persists custom-job quote requests.
type QuoteRepository interface {
	Insert(ctx context.Context, quote domain.QuoteRequest) error
	FindByID(ctx context.Context, quoteID string) (domain.QuoteRequest, error)
	List(ctx context.Context, filter QuoteListFilter) (domain.CursorPage[domain.QuoteRequest], error)
	UpdateStatus(ctx context.Context, quoteID string, status domain.QuoteStatus, respondedAt *time.Time) (domain.QuoteRequest, error)
}

// QuoteListFilter narrows quote listings.
type QuoteListFilter struct {
	Status     domain.QuoteStatus
	Pagination domain.Pagination
}

// CounterRepository provides atomic monotonic counters used for order and
// quote number allocation.
type CounterRepository interface {
	// Next atomically increments the counter identified by counterID and
	// returns the new value. A step of zero uses the counter's stored step.
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
