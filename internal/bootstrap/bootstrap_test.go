package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/dwikikusuma/storefront/internal/checkout/infra/memory"
	"github.com/dwikikusuma/storefront/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckoutMemoryMode(t *testing.T) {
	cfg := config.Default()
	co := NewCheckout(cfg)
	require.NotNil(t, co.Memory)

	c, err := co.Gateway.CreateCheckout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, co.Memory.Len())
	assert.Equal(t, memory.DefaultBaseURL+"/checkouts/"+c.ID, c.WebURL)
}

func TestNewCheckoutStorefrontMode(t *testing.T) {
	cfg := config.Default()
	cfg.Checkout.Mode = config.ModeStorefront
	cfg.Checkout.BaseURL = "https://shop.example"

	co := NewCheckout(cfg)
	assert.Nil(t, co.Memory)
	assert.NotNil(t, co.Gateway)
}

func TestOpenSnapshotsSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Snapshot.DSN = filepath.Join(t.TempDir(), "cart.db")

	snaps, err := OpenSnapshots(ctx, cfg, nil)
	require.NoError(t, err)
	defer snaps.Close()
	require.NoError(t, snaps.Ping(ctx))

	st := domain.Empty()
	st.Add(domain.CartItem{ID: "i1", VariantID: "v1", Name: "Mug", Price: decimal.RequireFromString("9.50"), Quantity: 2})
	st.CheckoutID = "c1"
	st.CheckoutURL = "https://shop.example/checkouts/c1"
	require.NoError(t, snaps.Store.Save(ctx, "alice", st))

	got, err := snaps.Store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.CheckoutID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("9.5")))
}

func TestOpenSnapshotsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Snapshot.Driver = "etcd"
	_, err := OpenSnapshots(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestOpenSnapshotsPostgresUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Snapshot.Driver = "postgres"
	cfg.Snapshot.Postgres = config.PostgresConfig{Host: "127.0.0.1", Port: 1, User: "cart", DB: "cart"}

	_, err := OpenSnapshots(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres")
}
