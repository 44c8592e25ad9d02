// Package storefront talks to the hosted commerce backend over its JSON checkout API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const tokenHeader = "X-Storefront-Access-Token"

type Config struct {
	BaseURL       string
	AccessToken   string
	Timeout       time.Duration
	MaxRetries    int
	RatePerSecond float64
	Burst         int
}

type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	limiter  *rate.Limiter
	pipeline failsafe.Executor[*response]
}

type response struct {
	status int
	body   []byte
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}

	retryPolicy := retrypolicy.NewBuilder[*response]().
		HandleIf(func(resp *response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return resp.status >= 500 || resp.status == http.StatusTooManyRequests
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(cfg.MaxRetries).
		Build()

	breaker := circuitbreaker.NewBuilder[*response]().
		HandleIf(func(resp *response, err error) bool {
			if err != nil {
				return true
			}
			return resp.status >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.AccessToken,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		pipeline: failsafe.With[*response](retryPolicy, breaker),
	}
}

type lineItemsRequest struct {
	LineItems []domain.LineItem `json:"lineItems"`
}

type checkoutEnvelope struct {
	Checkout domain.Checkout `json:"checkout"`
}

func (c *Client) Create(ctx context.Context) (domain.Checkout, error) {
	return c.checkout(ctx, http.MethodPost, "/checkouts", nil)
}

func (c *Client) Get(ctx context.Context, id string) (domain.Checkout, error) {
	return c.checkout(ctx, http.MethodGet, "/checkouts/"+url.PathEscape(id), nil)
}

func (c *Client) AddLineItems(ctx context.Context, id string, items []domain.LineItem) (domain.Checkout, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return c.checkout(ctx, http.MethodPut, "/checkouts/"+url.PathEscape(id)+"/line_items", lineItemsRequest{LineItems: items})
}

func (c *Client) checkout(ctx context.Context, method, path string, body any) (domain.Checkout, error) {
	raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return domain.Checkout{}, err
	}

	var env checkoutEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Checkout{}, status.Errorf(codes.Internal, "decode checkout: %v", err)
	}
	if env.Checkout.ID == "" {
		return domain.Checkout{}, status.Error(codes.Internal, "decode checkout: missing id")
	}
	return env.Checkout, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "encode request: %v", err)
		}
		payload = b
	}

	resp, err := c.pipeline.WithContext(ctx).Get(func() (*response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set(tokenHeader, c.token)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		return &response{status: res.StatusCode, body: data}, nil
	})

	if resp != nil && resp.status != 0 && resp.status < 300 {
		return resp.body, nil
	}
	if resp != nil && resp.status != 0 {
		return nil, statusFromHTTP(method, path, resp)
	}
	if err == nil {
		err = errors.New("empty response")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, status.FromContextError(ctxErr).Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, status.Errorf(codes.DeadlineExceeded, "%s %s: %v", method, path, err)
	}
	return nil, status.Errorf(codes.Unavailable, "%s %s: %v", method, path, err)
}

func statusFromHTTP(method, path string, resp *response) error {
	msg := fmt.Sprintf("%s %s: status=%d body=%s", method, path, resp.status, truncate(resp.body, 256))

	switch {
	case resp.status == http.StatusNotFound || resp.status == http.StatusGone:
		return status.Error(codes.NotFound, msg)
	case resp.status == http.StatusConflict:
		return status.Error(codes.FailedPrecondition, msg)
	case resp.status == http.StatusBadRequest || resp.status == http.StatusUnprocessableEntity:
		return status.Error(codes.InvalidArgument, msg)
	case resp.status == http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case resp.status == http.StatusForbidden:
		return status.Error(codes.PermissionDenied, msg)
	case resp.status == http.StatusTooManyRequests:
		return status.Error(codes.ResourceExhausted, msg)
	case resp.status >= 500:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Unknown, msg)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
