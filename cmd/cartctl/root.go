package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dwikikusuma/storefront/internal/bootstrap"
	cartapp "github.com/dwikikusuma/storefront/internal/cart/app"
	"github.com/dwikikusuma/storefront/pkg/config"
	"github.com/dwikikusuma/storefront/pkg/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	format     string
	cartID     string

	out    io.Writer
	errOut io.Writer
}

// session is one opened cart plus the resources behind it.
type session struct {
	cart     *cartapp.Service
	checkout bootstrap.Checkout
	close    func()
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and edit the local cart and its remote checkout",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", opts.format)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $CONFIG_FILE)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "Output format (text, json)")
	cmd.PersistentFlags().StringVar(&opts.cartID, "cart", "", "Cart id; empty uses the default cart")

	cmd.AddCommand(
		showCmd(opts),
		addCmd(opts),
		removeCmd(opts),
		setQtyCmd(opts),
		clearCmd(opts),
		checkoutCmd(opts),
		resyncCmd(opts),
		completeCmd(opts),
	)
	return cmd
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.NewNoDefault(logger.Options{
		Service: "cartctl",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  "text",
		Output:  o.errOut,
	})

	snaps, err := bootstrap.OpenSnapshots(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	checkout := bootstrap.NewCheckout(cfg)
	svc, detach, err := cartapp.Open(ctx, checkout.Gateway, snaps.Store, cartapp.Options{
		CartID:      o.cartID,
		SyncTimeout: cfg.SyncTimeout,
		Logger:      log,
	})
	if err != nil {
		snaps.Close()
		return nil, err
	}

	return &session{
		cart:     svc,
		checkout: checkout,
		close: func() {
			detach()
			if err := snaps.Close(); err != nil {
				log.Warn("snapshot store close failed", slog.Any("err", err))
			}
		},
	}, nil
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFrom(o.configPath)
	}
	return config.Load()
}

// withCart opens the cart, runs fn and prints the resulting state.
func (o *rootOptions) withCart(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if fn != nil {
		if err := fn(ctx, s); err != nil {
			return err
		}
	}
	return render(o.out, o.format, s.cart.State())
}
