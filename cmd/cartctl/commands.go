package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func showCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart and the checkout it is linked to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCart(cmd, nil)
		},
	}
}

func addCmd(opts *rootOptions) *cobra.Command {
	var (
		name     string
		price    string
		imageURL string
		itemID   string
	)

	cmd := &cobra.Command{
		Use:   "add <variant-id> [quantity]",
		Short: "Add a variant to the cart, merging with an existing line",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty := 1
			if len(args) == 2 {
				n, err := parseQuantity(args[1])
				if err != nil {
					return err
				}
				qty = n
			}

			p, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}

			item := domain.CartItem{
				ID:        itemID,
				VariantID: args[0],
				Name:      name,
				Price:     p,
				Quantity:  qty,
				ImageURL:  imageURL,
			}
			return opts.withCart(cmd, func(ctx context.Context, s *session) error {
				return s.cart.AddItem(ctx, item)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&price, "price", "0", "Unit price")
	cmd.Flags().StringVar(&imageURL, "image", "", "Image URL")
	cmd.Flags().StringVar(&itemID, "id", "", "Local item id (generated when empty)")
	return cmd
}

func removeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <variant-id>",
		Short: "Remove a variant from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCart(cmd, func(ctx context.Context, s *session) error {
				return s.cart.RemoveItem(ctx, args[0])
			})
		},
	}
}

func setQtyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-qty <variant-id> <quantity>",
		Short: "Set the quantity of a variant; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return opts.withCart(cmd, func(ctx context.Context, s *session) error {
				return s.cart.UpdateQuantity(ctx, args[0], qty)
			})
		},
	}
}

func clearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart and forget its checkout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCart(cmd, func(ctx context.Context, s *session) error {
				return s.cart.ClearCart(ctx)
			})
		},
	}
}

func resyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Re-submit the cart to its checkout, recreating it if stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCart(cmd, func(ctx context.Context, s *session) error {
				return s.cart.Resync(ctx)
			})
		},
	}
}

func checkoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Print the hosted checkout URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			url, err := s.cart.Checkout()
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return writeJSON(opts.out, map[string]string{"checkoutUrl": url})
			}
			_, err = fmt.Fprintln(opts.out, url)
			return err
		},
	}
}

// completeCmd simulates a shopper paying for the held checkout. Only the
// in-process memory backend supports it.
func completeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Complete the held checkout (memory mode) and resync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCart(cmd, func(ctx context.Context, s *session) error {
				if s.checkout.Memory == nil {
					return errors.New("complete is only available in memory checkout mode")
				}
				// The memory backend starts empty each run, so make sure a
				// checkout exists in this process first.
				if err := s.cart.Resync(ctx); err != nil {
					return err
				}
				id := s.cart.State().CheckoutID
				if id == "" {
					return errors.New("cart has no checkout to complete")
				}
				if err := s.checkout.Memory.Complete(ctx, id); err != nil {
					return err
				}
				return s.cart.Resync(ctx)
			})
		},
	}
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return n, nil
}
