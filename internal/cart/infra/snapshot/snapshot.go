// Package snapshot mirrors cart state into a key-value substrate.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
)

// DefaultKey is the key of the unnamed cart; named carts use DefaultKey + ":" + id.
const DefaultKey = "cart"

type Store struct {
	sub Substrate
	log *slog.Logger
}

func NewStore(sub Substrate, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{sub: sub, log: log}
}

func KeyFor(cartID string) string {
	if cartID == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + cartID
}

// Load returns the stored cart, or an empty cart when none is stored or the
// stored value cannot be parsed.
func (s *Store) Load(ctx context.Context, cartID string) (domain.CartState, error) {
	key := KeyFor(cartID)
	raw, ok, err := s.sub.Get(ctx, key)
	if err != nil {
		return domain.CartState{}, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return domain.Empty(), nil
	}

	st, err := Decode([]byte(raw))
	if err != nil {
		s.log.Warn("discarding unreadable cart snapshot", slog.String("key", key), slog.Any("err", err))
		return domain.Empty(), nil
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, cartID string, st domain.CartState) error {
	raw, err := Encode(st)
	if err != nil {
		return err
	}
	key := KeyFor(cartID)
	if err := s.sub.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func Encode(st domain.CartState) ([]byte, error) {
	if st.Items == nil {
		st.Items = []domain.CartItem{}
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode cart snapshot: %w", err)
	}
	return raw, nil
}

// Decode parses a snapshot and normalizes it for reuse after a restart.
func Decode(raw []byte) (domain.CartState, error) {
	var st domain.CartState
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.CartState{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return st.Normalize(), nil
}
