package adapter

import (
	"context"
	"errors"
	"fmt"

	cartapp "github.com/dwikikusuma/storefront/internal/cart/app"
	cartdomain "github.com/dwikikusuma/storefront/internal/cart/domain"
	checkoutapp "github.com/dwikikusuma/storefront/internal/checkout/app"
	checkoutdomain "github.com/dwikikusuma/storefront/internal/checkout/domain"
)

// CheckoutGateway exposes the checkout service through the cart's gateway port.
type CheckoutGateway struct {
	svc *checkoutapp.Service
}

func NewCheckoutGateway(svc *checkoutapp.Service) *CheckoutGateway {
	return &CheckoutGateway{svc: svc}
}

func (g *CheckoutGateway) CreateCheckout(ctx context.Context) (cartapp.Checkout, error) {
	c, err := g.svc.CreateCheckout(ctx)
	if err != nil {
		return cartapp.Checkout{}, mapErr(err)
	}
	return toCart(c), nil
}

func (g *CheckoutGateway) GetCheckout(ctx context.Context, id string) (cartapp.Checkout, error) {
	c, err := g.svc.GetCheckout(ctx, id)
	if err != nil {
		return cartapp.Checkout{}, mapErr(err)
	}
	return toCart(c), nil
}

func (g *CheckoutGateway) AddLineItems(ctx context.Context, checkoutID string, items []cartdomain.LineItem) (cartapp.Checkout, error) {
	lines := make([]checkoutdomain.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, checkoutdomain.LineItem{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}

	c, err := g.svc.AddLineItems(ctx, checkoutID, lines)
	if err != nil {
		return cartapp.Checkout{}, mapErr(err)
	}
	return toCart(c), nil
}

func toCart(c checkoutdomain.Checkout) cartapp.Checkout {
	return cartapp.Checkout{
		ID:          c.ID,
		WebURL:      c.WebURL,
		CompletedAt: c.CompletedAt,
	}
}

func mapErr(err error) error {
	if errors.Is(err, checkoutapp.ErrNotFound) {
		return fmt.Errorf("%w: %w", cartapp.ErrCheckoutNotFound, err)
	}
	return err
}
