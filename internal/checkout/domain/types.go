package domain

import "time"

type LineItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Checkout is a remote-hosted purchase. CompletedAt is set once it has been paid.
type Checkout struct {
	ID          string     `json:"id"`
	WebURL      string     `json:"webUrl"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	LineItems   []LineItem `json:"lineItems"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (c Checkout) Completed() bool {
	return c.CompletedAt != nil
}
