// Package memory is an in-process commerce backend for development and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultBaseURL prefixes checkout web URLs when no storefront URL is configured.
const DefaultBaseURL = "http://localhost:8080"

type Backend struct {
	baseURL string
	now     func() time.Time

	mu        sync.Mutex
	checkouts map[string]domain.Checkout

	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func NewBackend(baseURL string) *Backend {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Backend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
		checkouts: make(map[string]domain.Checkout),
	}
}

func (b *Backend) Create(ctx context.Context) (domain.Checkout, error) {
	defer b.track()()
	if err := ctx.Err(); err != nil {
		return domain.Checkout{}, status.FromContextError(err).Err()
	}

	now := b.now().UTC()
	id := uuid.NewString()
	c := domain.Checkout{
		ID:        id,
		WebURL:    b.baseURL + "/checkouts/" + id,
		LineItems: []domain.LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	b.mu.Lock()
	b.checkouts[id] = c
	b.mu.Unlock()
	return clone(c), nil
}

func (b *Backend) Get(ctx context.Context, id string) (domain.Checkout, error) {
	defer b.track()()
	if err := ctx.Err(); err != nil {
		return domain.Checkout{}, status.FromContextError(err).Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.checkouts[id]
	if !ok {
		return domain.Checkout{}, status.Errorf(codes.NotFound, "checkout %q not found", id)
	}
	return clone(c), nil
}

// AddLineItems replaces the checkout's line items with items.
func (b *Backend) AddLineItems(ctx context.Context, id string, items []domain.LineItem) (domain.Checkout, error) {
	defer b.track()()
	if err := ctx.Err(); err != nil {
		return domain.Checkout{}, status.FromContextError(err).Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.checkouts[id]
	if !ok {
		return domain.Checkout{}, status.Errorf(codes.NotFound, "checkout %q not found", id)
	}
	if c.Completed() {
		return domain.Checkout{}, status.Errorf(codes.FailedPrecondition, "checkout %q already completed", id)
	}

	c.LineItems = append([]domain.LineItem{}, items...)
	c.UpdatedAt = b.now().UTC()
	b.checkouts[id] = c
	return clone(c), nil
}

// Complete marks a checkout as paid, the way the hosted checkout page would.
func (b *Backend) Complete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.checkouts[id]
	if !ok {
		return status.Errorf(codes.NotFound, "checkout %q not found", id)
	}
	if c.Completed() {
		return nil
	}
	now := b.now().UTC()
	c.CompletedAt = &now
	c.UpdatedAt = now
	b.checkouts[id] = c
	return nil
}

// Expire forgets a checkout so later lookups report NotFound.
func (b *Backend) Expire(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.checkouts, id)
}

func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.checkouts)
}

// MaxConcurrent reports the highest number of calls seen in flight at once.
func (b *Backend) MaxConcurrent() int {
	return int(b.maxSeen.Load())
}

func (b *Backend) track() func() {
	n := b.inFlight.Add(1)
	for {
		seen := b.maxSeen.Load()
		if n <= seen || b.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	return func() { b.inFlight.Add(-1) }
}

func clone(c domain.Checkout) domain.Checkout {
	c.LineItems = append([]domain.LineItem{}, c.LineItems...)
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
