package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(variant string, qty int, price int64) CartItem {
	return CartItem{ID: "i-" + variant, VariantID: variant, Name: variant, Price: decimal.NewFromInt(price), Quantity: qty}
}

func TestCartState_Add(t *testing.T) {
	t.Run("same variant merges quantities", func(t *testing.T) {
		s := Empty()
		s.Add(item("v1", 2, 10))
		s.Add(item("v1", 3, 10))
		s.Add(item("v1", 1, 10))

		require.Len(t, s.Items, 1)
		assert.Equal(t, 6, s.Items[0].Quantity)
	})

	t.Run("new variants append in insertion order", func(t *testing.T) {
		s := Empty()
		s.Add(item("v2", 1, 10))
		s.Add(item("v1", 1, 10))
		s.Add(item("v3", 1, 10))
		s.Add(item("v1", 1, 10))

		require.Len(t, s.Items, 3)
		assert.Equal(t, []string{"v2", "v1", "v3"}, variants(s))
	})
}

func TestCartState_SetQuantity(t *testing.T) {
	for _, qty := range []int{0, -5} {
		s := Empty()
		s.Add(item("v1", 2, 10))
		s.Add(item("v2", 1, 10))

		s.SetQuantity("v1", qty)

		assert.Equal(t, []string{"v2"}, variants(s), "qty=%d", qty)
	}

	t.Run("positive sets exact quantity", func(t *testing.T) {
		s := Empty()
		s.Add(item("v1", 2, 10))
		s.SetQuantity("v1", 7)
		assert.Equal(t, 7, s.Items[0].Quantity)
	})

	t.Run("absent variant is a no-op", func(t *testing.T) {
		s := Empty()
		s.SetQuantity("missing", 3)
		assert.Empty(t, s.Items)
	})
}

func TestCartState_RemoveDoesNotAliasClone(t *testing.T) {
	s := Empty()
	s.Add(item("v1", 1, 10))
	s.Add(item("v2", 1, 10))
	before := s.Clone()

	s.Remove("v1")

	assert.Equal(t, []string{"v1", "v2"}, variants(before))
	assert.Equal(t, []string{"v2"}, variants(s))
}

func TestCartState_Subtotal(t *testing.T) {
	s := Empty()
	s.Add(CartItem{VariantID: "v1", Price: decimal.RequireFromString("19.99"), Quantity: 2})
	s.Add(CartItem{VariantID: "v2", Price: decimal.RequireFromString("0.02"), Quantity: 1})

	assert.True(t, decimal.RequireFromString("40.00").Equal(s.Subtotal()), "got %s", s.Subtotal())
}

func TestCartState_Normalize(t *testing.T) {
	s := CartState{
		Items: []CartItem{
			item("v1", 1, 10),
			item("v2", 0, 10),
			item("v1", 2, 10),
			item("", 4, 10),
		},
		CheckoutURL: "https://shop.example/orphan",
		Loading:     true,
	}

	got := s.Normalize()

	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.False(t, got.Loading)
	assert.Empty(t, got.CheckoutURL)
}

func variants(s CartState) []string {
	out := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it.VariantID)
	}
	return out
}
