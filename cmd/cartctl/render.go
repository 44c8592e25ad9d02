package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/shopspring/decimal"
)

type cartOutput struct {
	domain.CartState
	Subtotal decimal.Decimal `json:"subtotal"`
}

func render(w io.Writer, format string, st domain.CartState) error {
	if format == "json" {
		if st.Items == nil {
			st.Items = []domain.CartItem{}
		}
		return writeJSON(w, cartOutput{CartState: st, Subtotal: st.Subtotal()})
	}
	return renderText(w, st)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderText(w io.Writer, st domain.CartState) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(st.Items) == 0 {
		fmt.Fprintln(tw, "cart is empty")
	} else {
		fmt.Fprintln(tw, "VARIANT\tNAME\tQTY\tPRICE\tTOTAL")
		for _, it := range st.Items {
			line := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				it.VariantID, it.Name, it.Quantity, it.Price.StringFixed(2), line.StringFixed(2))
		}
		fmt.Fprintf(tw, "\t\t\tSUBTOTAL\t%s\n", st.Subtotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if st.CheckoutID != "" {
		fmt.Fprintf(w, "checkout: %s\n", st.CheckoutID)
		fmt.Fprintf(w, "url:      %s\n", st.CheckoutURL)
	} else {
		fmt.Fprintln(w, "checkout: none")
	}
	if st.SyncError != "" {
		fmt.Fprintf(w, "sync error: %s\n", st.SyncError)
	}
	return nil
}
