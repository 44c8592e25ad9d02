package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
)

type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	checkouts map[string]Checkout
	lines     map[string][]domain.LineItem
	calls     []string

	createErr error
	getErr    error
	addErr    error
	block     bool

	inFlight    int
	maxInFlight int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		checkouts: make(map[string]Checkout),
		lines:     make(map[string][]domain.LineItem),
	}
}

func (g *fakeGateway) enter(call string) func() {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if !g.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (g *fakeGateway) CreateCheckout(ctx context.Context) (Checkout, error) {
	defer g.enter("create")()
	if err := g.wait(ctx); err != nil {
		return Checkout{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return Checkout{}, g.createErr
	}
	g.seq++
	c := Checkout{ID: fmt.Sprintf("c%d", g.seq), WebURL: fmt.Sprintf("u%d", g.seq)}
	g.checkouts[c.ID] = c
	return c, nil
}

func (g *fakeGateway) GetCheckout(ctx context.Context, id string) (Checkout, error) {
	defer g.enter("get")()
	if err := g.wait(ctx); err != nil {
		return Checkout{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return Checkout{}, g.getErr
	}
	c, ok := g.checkouts[id]
	if !ok {
		return Checkout{}, fmt.Errorf("checkout %s: %w", id, ErrCheckoutNotFound)
	}
	return c, nil
}

func (g *fakeGateway) AddLineItems(ctx context.Context, checkoutID string, items []domain.LineItem) (Checkout, error) {
	defer g.enter("add")()
	if err := g.wait(ctx); err != nil {
		return Checkout{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.addErr != nil {
		return Checkout{}, g.addErr
	}
	c, ok := g.checkouts[checkoutID]
	if !ok {
		return Checkout{}, ErrCheckoutNotFound
	}
	g.lines[checkoutID] = append([]domain.LineItem(nil), items...)
	return c, nil
}

// seed registers a checkout that the cart already holds.
func (g *fakeGateway) seed(id, url string, completed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := Checkout{ID: id, WebURL: url}
	if completed {
		now := time.Now()
		c.CompletedAt = &now
	}
	g.checkouts[id] = c
}

func (g *fakeGateway) callLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) resetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

type memStore struct {
	mu     sync.Mutex
	states map[string]domain.CartState
	saves  int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]domain.CartState)}
}

func (m *memStore) Load(_ context.Context, cartID string) (domain.CartState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[cartID]
	if !ok {
		return domain.Empty(), nil
	}
	return st.Clone(), nil
}

func (m *memStore) Save(_ context.Context, cartID string, st domain.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[cartID] = st.Clone()
	m.saves++
	return nil
}

type recordingRecorder struct {
	mu        sync.Mutex
	outcomes  []string
	recreated []string
}

func (r *recordingRecorder) SyncFinished(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) CheckoutRecreated(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recreated = append(r.recreated, reason)
}
