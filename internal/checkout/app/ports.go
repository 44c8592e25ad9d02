package app

import (
	"context"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
)

// Backend is the hosted commerce backend. Implementations report failures as
// gRPC status errors: NotFound for unknown ids, FailedPrecondition for
// completed checkouts, Unavailable or DeadlineExceeded for transport trouble.
type Backend interface {
	Create(ctx context.Context) (domain.Checkout, error)
	Get(ctx context.Context, id string) (domain.Checkout, error)
	// AddLineItems submits the complete desired line item set.
	AddLineItems(ctx context.Context, id string, items []domain.LineItem) (domain.Checkout, error)
}
