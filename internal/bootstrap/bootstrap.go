// Package bootstrap builds the checkout gateway and snapshot store a cart
// process runs against, as selected by config.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	cartapp "github.com/dwikikusuma/storefront/internal/cart/app"
	"github.com/dwikikusuma/storefront/internal/cart/infra/adapter"
	"github.com/dwikikusuma/storefront/internal/cart/infra/firestore"
	"github.com/dwikikusuma/storefront/internal/cart/infra/snapshot"
	"github.com/dwikikusuma/storefront/internal/cart/infra/sqlkv"
	checkoutapp "github.com/dwikikusuma/storefront/internal/checkout/app"
	"github.com/dwikikusuma/storefront/internal/checkout/infra/memory"
	"github.com/dwikikusuma/storefront/internal/checkout/infra/storefront"
	"github.com/dwikikusuma/storefront/pkg/config"
	"github.com/dwikikusuma/storefront/pkg/postgres"
	"github.com/dwikikusuma/storefront/pkg/sqlite"
)

const defaultSQLitePath = "cart.db"

type Checkout struct {
	Gateway cartapp.CheckoutGateway

	// Memory is set in memory mode so tooling can complete checkouts.
	Memory *memory.Backend
}

func NewCheckout(cfg config.Config) Checkout {
	switch cfg.Checkout.Mode {
	case config.ModeStorefront:
		client := storefront.NewClient(storefront.Config{
			BaseURL:       cfg.Checkout.BaseURL,
			AccessToken:   cfg.Checkout.AccessToken,
			Timeout:       cfg.Checkout.Timeout,
			MaxRetries:    cfg.Checkout.MaxRetries,
			RatePerSecond: cfg.Checkout.RatePerSecond,
			Burst:         cfg.Checkout.Burst,
		})
		return Checkout{Gateway: adapter.NewCheckoutGateway(checkoutapp.NewService(client))}
	default:
		backend := memory.NewBackend(cfg.Checkout.BaseURL)
		return Checkout{
			Gateway: adapter.NewCheckoutGateway(checkoutapp.NewService(backend)),
			Memory:  backend,
		}
	}
}

type Snapshots struct {
	Store *snapshot.Store
	// Ping reports whether the substrate is reachable.
	Ping  func(ctx context.Context) error
	Close func() error
}

func OpenSnapshots(ctx context.Context, cfg config.Config, log *slog.Logger) (Snapshots, error) {
	sc := cfg.Snapshot
	switch sc.Driver {
	case "memory":
		return Snapshots{
			Store: snapshot.NewStore(snapshot.NewMemory(), log),
			Ping:  func(context.Context) error { return nil },
			Close: func() error { return nil },
		}, nil

	case "sqlite":
		path := sc.DSN
		if path == "" {
			path = defaultSQLitePath
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return Snapshots{}, err
		}
		return sqlSnapshots(ctx, db, sqlkv.SQLite, log)

	case "postgres":
		db, err := openPostgres(sc)
		if err != nil {
			return Snapshots{}, err
		}
		return sqlSnapshots(ctx, db, sqlkv.Postgres, log)

	case "firestore":
		kv, err := firestore.Open(ctx, sc.ProjectID, sc.Collection)
		if err != nil {
			return Snapshots{}, fmt.Errorf("open firestore: %w", err)
		}
		return Snapshots{
			Store: snapshot.NewStore(kv, log),
			Ping: func(ctx context.Context) error {
				_, _, err := kv.Get(ctx, snapshot.DefaultKey)
				return err
			},
			Close: kv.Close,
		}, nil

	default:
		return Snapshots{}, fmt.Errorf("unknown snapshot driver %q", sc.Driver)
	}
}

func sqlSnapshots(ctx context.Context, db *sql.DB, dialect sqlkv.Dialect, log *slog.Logger) (Snapshots, error) {
	kv := sqlkv.New(db, dialect)
	if err := kv.Migrate(ctx); err != nil {
		db.Close()
		return Snapshots{}, err
	}
	return Snapshots{
		Store: snapshot.NewStore(kv, log),
		Ping:  db.PingContext,
		Close: db.Close,
	}, nil
}

// openPostgres prefers an explicit DSN and falls back to the discrete fields.
func openPostgres(sc config.SnapshotConfig) (*sql.DB, error) {
	if sc.DSN != "" {
		return postgres.OpenDSN(sc.DSN)
	}
	return postgres.Open(postgres.Config{
		Host:    sc.Postgres.Host,
		Port:    sc.Postgres.Port,
		User:    sc.Postgres.User,
		Pass:    sc.Postgres.Password,
		DB:      sc.Postgres.DB,
		SSLMode: sc.Postgres.SSLMode,
	})
}
