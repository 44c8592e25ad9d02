package domain

import (
	"github.com/shopspring/decimal"
)

// CartItem is one product variant held in the local cart.
type CartItem struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variantId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl"`
}

// LineItem is the {variantId, quantity} pair submitted to a remote checkout.
type LineItem struct {
	VariantID string
	Quantity  int
}

// CartState is the locally owned cart plus its link to a remote checkout.
// CheckoutID and CheckoutURL are empty when no checkout is held.
type CartState struct {
	Items       []CartItem `json:"items"`
	CheckoutID  string     `json:"checkoutId,omitempty"`
	CheckoutURL string     `json:"checkoutUrl,omitempty"`
	Loading     bool       `json:"loading"`
	SyncError   string     `json:"syncError,omitempty"`
}

func Empty() CartState {
	return CartState{Items: []CartItem{}}
}

// Clone returns a copy that shares no backing array with s.
func (s CartState) Clone() CartState {
	out := s
	out.Items = make([]CartItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func (s CartState) IndexOf(variantID string) int {
	for i := range s.Items {
		if s.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// Add merges item into the cart: an existing variant gets its quantity increased,
// a new variant is appended.
func (s *CartState) Add(item CartItem) {
	if idx := s.IndexOf(item.VariantID); idx >= 0 {
		merged := s.Items[idx]
		merged.Quantity += item.Quantity
		s.Items[idx] = merged
		return
	}
	s.Items = append(s.Items, item)
}

// Remove deletes the variant if present, preserving the order of the rest.
func (s *CartState) Remove(variantID string) {
	idx := s.IndexOf(variantID)
	if idx < 0 {
		return
	}
	items := make([]CartItem, 0, len(s.Items)-1)
	items = append(items, s.Items[:idx]...)
	items = append(items, s.Items[idx+1:]...)
	s.Items = items
}

// SetQuantity sets the quantity of a held variant. qty <= 0 removes it.
func (s *CartState) SetQuantity(variantID string, qty int) {
	if qty <= 0 {
		s.Remove(variantID)
		return
	}
	if idx := s.IndexOf(variantID); idx >= 0 {
		s.Items[idx].Quantity = qty
	}
}

func (s CartState) LineItems() []LineItem {
	out := make([]LineItem, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, LineItem{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return out
}

// Subtotal is a display estimate; the commerce backend owns real totals.
func (s CartState) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Normalize drops non-positive quantities, merges duplicate variants in first-seen
// order and clears the transient loading flag. Used on restore.
func (s CartState) Normalize() CartState {
	out := CartState{
		Items:       make([]CartItem, 0, len(s.Items)),
		CheckoutID:  s.CheckoutID,
		CheckoutURL: s.CheckoutURL,
		SyncError:   s.SyncError,
	}
	for _, it := range s.Items {
		if it.VariantID == "" || it.Quantity <= 0 {
			continue
		}
		out.Add(it)
	}
	if out.CheckoutID == "" {
		out.CheckoutURL = ""
	}
	return out
}
