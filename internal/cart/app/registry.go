package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
)

// Open restores a cart from store, builds its Service and writes every later
// state change back to store. The returned func detaches the snapshot sink.
func Open(ctx context.Context, gateway CheckoutGateway, store SnapshotStore, opts Options) (*Service, func(), error) {
	initial, err := store.Load(ctx, opts.CartID)
	if err != nil {
		return nil, nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	svc := NewService(gateway, initial, opts)
	return svc, persist(svc, store), nil
}

func persist(svc *Service, store SnapshotStore) func() {
	log := svc.log
	cartID := svc.CartID()
	return svc.Subscribe(func(st domain.CartState) {
		if err := store.Save(context.Background(), cartID, st); err != nil {
			log.Warn("cart snapshot save failed", slog.Any("err", err))
		}
	})
}

// Registry hands out one Service per cart id, opening carts on first use.
type Registry struct {
	gateway CheckoutGateway
	store   SnapshotStore
	opts    Options

	mu     sync.Mutex
	carts  map[string]*Service
	closes []func()
}

func NewRegistry(gateway CheckoutGateway, store SnapshotStore, opts Options) *Registry {
	return &Registry{
		gateway: gateway,
		store:   store,
		opts:    opts,
		carts:   make(map[string]*Service),
	}
}

// Get returns the Service for cartID. The snapshot is loaded without holding
// the registry lock, so a slow store only delays callers of the same cart.
func (r *Registry) Get(ctx context.Context, cartID string) (*Service, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, ErrInvalidInput
	}

	if svc, ok := r.lookup(cartID); ok {
		return svc, nil
	}

	initial, err := r.store.Load(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}

	r.mu.Lock()
	if svc, ok := r.carts[cartID]; ok {
		r.mu.Unlock()
		return svc, nil
	}
	opts := r.opts
	opts.CartID = cartID
	svc := NewService(r.gateway, initial, opts)
	r.carts[cartID] = svc
	r.mu.Unlock()

	// The sink replays the current state on subscribe, so changes made by
	// other callers before this point are still persisted.
	detach := persist(svc, r.store)
	r.mu.Lock()
	r.closes = append(r.closes, detach)
	r.mu.Unlock()
	return svc, nil
}

func (r *Registry) lookup(cartID string) (*Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.carts[cartID]
	return svc, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Close detaches every snapshot sink. Services stay usable but stop persisting.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fn := range r.closes {
		fn()
	}
	r.closes = nil
}
