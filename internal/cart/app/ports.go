package app

import (
	"context"
	"time"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
)

// Checkout is the remote checkout as seen by the cart.
type Checkout struct {
	ID          string
	WebURL      string
	CompletedAt *time.Time
}

func (c Checkout) Completed() bool {
	return c.CompletedAt != nil
}

// CheckoutGateway is the hosted commerce backend. GetCheckout returns an error
// satisfying errors.Is(err, ErrCheckoutNotFound) for unknown or expired ids.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context) (Checkout, error)
	GetCheckout(ctx context.Context, id string) (Checkout, error)
	AddLineItems(ctx context.Context, checkoutID string, items []domain.LineItem) (Checkout, error)
}

// Recorder receives sync pass outcomes.
type Recorder interface {
	SyncFinished(outcome string, elapsed time.Duration)
	CheckoutRecreated(reason string)
}

type nopRecorder struct{}

func (nopRecorder) SyncFinished(string, time.Duration) {}
func (nopRecorder) CheckoutRecreated(string)           {}

// SnapshotStore mirrors a cart across process lifetimes. Load falls back to an
// empty cart when nothing usable is stored; it errors only when the store
// itself cannot be read.
type SnapshotStore interface {
	Load(ctx context.Context, cartID string) (domain.CartState, error)
	Save(ctx context.Context, cartID string, state domain.CartState) error
}
