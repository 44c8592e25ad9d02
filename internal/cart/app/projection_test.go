package app

import (
	"context"
	"testing"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection_ReplaysCurrentOnSubscribe(t *testing.T) {
	initial := domain.Empty()
	initial.Items = []domain.CartItem{cartItem("v1", 1)}
	p := NewProjection(initial)

	next := p.Current()
	next.Items = append(next.Items, cartItem("v2", 3))
	p.publish(next)

	var seen []domain.CartState
	unsubscribe := p.Subscribe(func(st domain.CartState) { seen = append(seen, st) })
	defer unsubscribe()

	require.Len(t, seen, 1)
	assert.Len(t, seen[0].Items, 2)
	assert.Equal(t, next, p.Current())

	// Mutating a delivered state must not leak into the projection.
	seen[0].Items[0].Quantity = 99
	assert.Equal(t, 1, p.Current().Items[0].Quantity)
}

func TestSubscribe_FanOutUnsubscribeAndResubscribe(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeGateway(), domain.Empty())

	var first, second []domain.CartState
	unsubFirst := svc.Subscribe(func(st domain.CartState) { first = append(first, st) })
	unsubSecond := svc.Subscribe(func(st domain.CartState) { second = append(second, st) })
	defer unsubSecond()

	require.NoError(t, svc.AddItem(ctx, cartItem("v1", 1)))
	require.Equal(t, len(first), len(second), "both subscribers see every change")
	assert.Equal(t, first, second)

	unsubFirst()
	frozen := len(first)
	before := len(second)
	require.NoError(t, svc.AddItem(ctx, cartItem("v2", 1)))
	assert.Len(t, first, frozen)
	assert.Greater(t, len(second), before)

	// A second call to the handle is a no-op and leaves others attached.
	unsubFirst()
	before = len(second)
	require.NoError(t, svc.UpdateQuantity(ctx, "v2", 4))
	assert.Greater(t, len(second), before)

	var again []domain.CartState
	unsubAgain := svc.Subscribe(func(st domain.CartState) { again = append(again, st) })
	defer unsubAgain()
	require.Len(t, again, 1)
	assert.Len(t, again[0].Items, 2)
	assert.Equal(t, "c1", again[0].CheckoutID)
	assert.False(t, again[0].Loading)
	assert.Equal(t, svc.State(), again[0])
}
