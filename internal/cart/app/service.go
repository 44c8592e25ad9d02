package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrCheckoutNotFound  = errors.New("checkout not found")
	ErrNothingToCheckout = errors.New("nothing to check out")
)

const (
	OutcomeSynced = "synced"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"

	DefaultSyncTimeout = 10 * time.Second

	tracerName = "github.com/dwikikusuma/storefront/internal/cart/app"
)

// Options configures a Service. Zero values get defaults; Tracer falls back
// to the global provider.
type Options struct {
	CartID      string
	SyncTimeout time.Duration
	Logger      *slog.Logger
	Recorder    Recorder
	Tracer      trace.Tracer
	NewItemID   func() string
}

// Service owns one cart and keeps it in agreement with a remote checkout.
//
// Every public operation takes a single-slot queue before touching state, so a
// mutation and its synchronization pass finish before the next operation reads
// the checkout id. Gateway failures stay inside the pass.
type Service struct {
	gateway     CheckoutGateway
	log         *slog.Logger
	rec         Recorder
	tracer      trace.Tracer
	cartID      string
	syncTimeout time.Duration
	newItemID   func() string

	queue *semaphore.Weighted

	mu    sync.RWMutex
	state domain.CartState
	proj  *Projection
}

func NewService(gateway CheckoutGateway, initial domain.CartState, opts Options) *Service {
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = DefaultSyncTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.NewItemID == nil {
		opts.NewItemID = uuid.NewString
	}
	if initial.Items == nil {
		initial.Items = []domain.CartItem{}
	}

	return &Service{
		gateway:     gateway,
		log:         opts.Logger.With(slog.String("cart_id", opts.CartID)),
		rec:         opts.Recorder,
		tracer:      opts.Tracer,
		cartID:      opts.CartID,
		syncTimeout: opts.SyncTimeout,
		newItemID:   opts.NewItemID,
		queue:       semaphore.NewWeighted(1),
		state:       initial.Clone(),
		proj:        NewProjection(initial),
	}
}

func (s *Service) CartID() string {
	return s.cartID
}

// State returns a copy of the current cart.
func (s *Service) State() domain.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe replays the current state to fn and then reports every change.
// fn must not call back into mutating operations of s.
func (s *Service) Subscribe(fn func(domain.CartState)) (unsubscribe func()) {
	return s.proj.Subscribe(fn)
}

// AddItem merges item into the cart and synchronizes the checkout.
func (s *Service) AddItem(ctx context.Context, item domain.CartItem) error {
	item.VariantID = strings.TrimSpace(item.VariantID)
	if item.VariantID == "" || item.Quantity < 1 {
		return ErrInvalidInput
	}
	if strings.TrimSpace(item.ID) == "" {
		item.ID = s.newItemID()
	}

	return s.mutate(ctx, func(st *domain.CartState) {
		st.Add(item)
	})
}

// RemoveItem drops the variant; removing an absent variant still synchronizes.
func (s *Service) RemoveItem(ctx context.Context, variantID string) error {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return ErrInvalidInput
	}

	return s.mutate(ctx, func(st *domain.CartState) {
		st.Remove(variantID)
	})
}

// UpdateQuantity sets the quantity of a variant. quantity <= 0 is a removal.
func (s *Service) UpdateQuantity(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, variantID)
	}

	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return ErrInvalidInput
	}

	return s.mutate(ctx, func(st *domain.CartState) {
		st.SetQuantity(variantID, quantity)
	})
}

// ClearCart empties the cart and forgets the checkout without calling the gateway.
func (s *Service) ClearCart(ctx context.Context) error {
	if err := s.queue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.queue.Release(1)

	s.update(func(st *domain.CartState) {
		*st = domain.Empty()
	})
	return nil
}

// Resync runs a synchronization pass without changing the items.
func (s *Service) Resync(ctx context.Context) error {
	if err := s.queue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.queue.Release(1)

	s.sync(ctx)
	return nil
}

// Checkout returns the hosted checkout URL to hand off to. It returns
// ErrNothingToCheckout until a sync has succeeded.
func (s *Service) Checkout() (string, error) {
	st := s.State()
	if st.CheckoutURL == "" {
		return "", ErrNothingToCheckout
	}
	return st.CheckoutURL, nil
}

func (s *Service) mutate(ctx context.Context, fn func(st *domain.CartState)) error {
	if err := s.queue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.queue.Release(1)

	s.update(fn)
	s.sync(ctx)
	return nil
}

func (s *Service) update(fn func(st *domain.CartState)) {
	s.mu.Lock()
	next := s.state.Clone()
	fn(&next)
	s.state = next
	s.mu.Unlock()

	s.proj.publish(next)
}

func (s *Service) sync(ctx context.Context) {
	start := time.Now()
	s.update(func(st *domain.CartState) { st.Loading = true })

	current := s.State()
	ctx, span := s.tracer.Start(ctx, "cart.sync", trace.WithAttributes(
		attribute.String("cart.id", s.cartID),
		attribute.Int("cart.items", len(current.Items)),
	))
	defer span.End()

	if len(current.Items) == 0 {
		s.update(func(st *domain.CartState) {
			st.CheckoutID = ""
			st.CheckoutURL = ""
			st.Loading = false
			st.SyncError = ""
		})
		span.SetAttributes(attribute.String("cart.sync.outcome", OutcomeEmpty))
		s.rec.SyncFinished(OutcomeEmpty, time.Since(start))
		return
	}

	// The pass outlives a cancelled caller; only the sync timeout bounds it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
	defer cancel()

	checkout, err := s.reconcile(ctx, current)
	if err != nil {
		s.log.Warn("checkout sync failed",
			slog.Any("err", err),
			slog.String("checkout_id", current.CheckoutID),
			slog.Int("items", len(current.Items)),
		)
		s.update(func(st *domain.CartState) {
			st.Loading = false
			st.SyncError = err.Error()
		})
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "checkout sync failed")
		span.SetAttributes(attribute.String("cart.sync.outcome", OutcomeFailed))
		s.rec.SyncFinished(OutcomeFailed, time.Since(start))
		return
	}

	s.update(func(st *domain.CartState) {
		st.CheckoutID = checkout.ID
		st.CheckoutURL = checkout.WebURL
		st.Loading = false
		st.SyncError = ""
	})
	s.log.Debug("checkout synced", slog.String("checkout_id", checkout.ID))
	span.SetAttributes(
		attribute.String("cart.sync.outcome", OutcomeSynced),
		attribute.String("checkout.id", checkout.ID),
	)
	s.rec.SyncFinished(OutcomeSynced, time.Since(start))
}

// reconcile submits the complete item list to a checkout that can still accept it.
func (s *Service) reconcile(ctx context.Context, st domain.CartState) (Checkout, error) {
	checkout, err := s.resolveCheckout(ctx, st.CheckoutID)
	if err != nil {
		return Checkout{}, err
	}

	updated, err := s.gateway.AddLineItems(ctx, checkout.ID, st.LineItems())
	if err != nil {
		return Checkout{}, fmt.Errorf("add line items to checkout %s: %w", checkout.ID, err)
	}
	if updated.ID == "" {
		updated.ID = checkout.ID
	}
	if updated.WebURL == "" {
		updated.WebURL = checkout.WebURL
	}
	return updated, nil
}

func (s *Service) resolveCheckout(ctx context.Context, checkoutID string) (Checkout, error) {
	if checkoutID == "" {
		return s.createCheckout(ctx)
	}

	existing, err := s.gateway.GetCheckout(ctx, checkoutID)
	switch {
	case errors.Is(err, ErrCheckoutNotFound):
		s.log.Info("held checkout no longer exists, creating a new one", slog.String("checkout_id", checkoutID))
		s.recreated(ctx, "not_found")
		return s.createCheckout(ctx)
	case err != nil:
		return Checkout{}, fmt.Errorf("get checkout %s: %w", checkoutID, err)
	case existing.Completed():
		s.log.Info("held checkout already completed, creating a new one", slog.String("checkout_id", checkoutID))
		s.recreated(ctx, "completed")
		return s.createCheckout(ctx)
	}
	return existing, nil
}

func (s *Service) recreated(ctx context.Context, reason string) {
	trace.SpanFromContext(ctx).AddEvent("checkout recreated", trace.WithAttributes(attribute.String("reason", reason)))
	s.rec.CheckoutRecreated(reason)
}

func (s *Service) createCheckout(ctx context.Context) (Checkout, error) {
	c, err := s.gateway.CreateCheckout(ctx)
	if err != nil {
		return Checkout{}, fmt.Errorf("create checkout: %w", err)
	}
	return c, nil
}
