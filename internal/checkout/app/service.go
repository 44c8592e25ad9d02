package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("checkout not found")
	ErrCompleted    = errors.New("checkout already completed")
	ErrUnavailable  = errors.New("checkout backend unavailable")
)

type Service struct {
	backend Backend
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

func (s *Service) CreateCheckout(ctx context.Context) (domain.Checkout, error) {
	c, err := s.backend.Create(ctx)
	if err != nil {
		return domain.Checkout{}, mapErr("create checkout", err)
	}
	return c, nil
}

func (s *Service) GetCheckout(ctx context.Context, id string) (domain.Checkout, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Checkout{}, ErrInvalidInput
	}

	c, err := s.backend.Get(ctx, id)
	if err != nil {
		return domain.Checkout{}, mapErr("get checkout "+id, err)
	}
	return c, nil
}

func (s *Service) AddLineItems(ctx context.Context, id string, items []domain.LineItem) (domain.Checkout, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Checkout{}, ErrInvalidInput
	}
	for i, it := range items {
		if strings.TrimSpace(it.VariantID) == "" || it.Quantity <= 0 {
			return domain.Checkout{}, fmt.Errorf("line item %d: %w", i, ErrInvalidInput)
		}
	}

	c, err := s.backend.AddLineItems(ctx, id, items)
	if err != nil {
		return domain.Checkout{}, mapErr("add line items to "+id, err)
	}
	return c, nil
}

func mapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case codes.FailedPrecondition:
		return fmt.Errorf("%s: %w", op, ErrCompleted)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}
