package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dwikikusuma/storefront/internal/cart/app"
	"github.com/dwikikusuma/storefront/internal/cart/infra/adapter"
	"github.com/dwikikusuma/storefront/internal/cart/infra/snapshot"
	checkoutapp "github.com/dwikikusuma/storefront/internal/checkout/app"
	"github.com/dwikikusuma/storefront/internal/checkout/infra/memory"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv     *httptest.Server
	backend *memory.Backend
	reg     *app.Registry
	client  *http.Client
}

func newTestEnv(t *testing.T, opts RouterOptions) *testEnv {
	t.Helper()

	backend := memory.NewBackend("https://shop.test")
	gw := adapter.NewCheckoutGateway(checkoutapp.NewService(backend))
	store := snapshot.NewStore(snapshot.NewMemory(), nil)
	reg := app.NewRegistry(gw, store, app.Options{})
	t.Cleanup(reg.Close)

	srv := httptest.NewServer(NewRouter(NewServer(reg, nil, []string{"*"}), opts))
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:     srv,
		backend: backend,
		reg:     reg,
		client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeView(t *testing.T, resp *http.Response) cartView {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v cartView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var b errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return b
}

func keyboard(qty int) map[string]any {
	return map[string]any{
		"variantId": "v-keyboard",
		"name":      "Keyboard",
		"price":     "100",
		"quantity":  qty,
	}
}

func TestAddItemSyncsCheckout(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})

	v := decodeView(t, env.do(t, http.MethodPost, "/carts/alice/items", keyboard(2)))

	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.NotEmpty(t, v.Items[0].ID)
	assert.NotEmpty(t, v.CheckoutID)
	assert.True(t, strings.HasPrefix(v.CheckoutURL, "https://shop.test/checkouts/"))
	assert.False(t, v.Loading)
	assert.Equal(t, "200", v.Subtotal.String())

	got := decodeView(t, env.do(t, http.MethodGet, "/carts/alice", nil))
	assert.Equal(t, v.CheckoutID, got.CheckoutID)

	other := decodeView(t, env.do(t, http.MethodGet, "/carts/bob", nil))
	assert.Empty(t, other.Items)
	assert.Empty(t, other.CheckoutID)
	assert.Equal(t, 2, env.reg.Len())
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})

	resp := env.do(t, http.MethodPost, "/carts/alice/items", keyboard(0))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, resp).Code)

	resp = env.do(t, http.MethodPost, "/carts/alice/items", map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Zero(t, env.backend.Len())
}

func TestSetQuantityAndRemove(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	env.do(t, http.MethodPost, "/carts/alice/items", keyboard(1))

	v := decodeView(t, env.do(t, http.MethodPut, "/carts/alice/items/v-keyboard", map[string]int{"quantity": 5}))
	require.Len(t, v.Items, 1)
	assert.Equal(t, 5, v.Items[0].Quantity)
	assert.Equal(t, "500", v.Subtotal.String())

	resp := env.do(t, http.MethodPut, "/carts/alice/items/v-keyboard", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	v = decodeView(t, env.do(t, http.MethodPut, "/carts/alice/items/v-keyboard", map[string]int{"quantity": 0}))
	assert.Empty(t, v.Items)

	env.do(t, http.MethodPost, "/carts/alice/items", keyboard(1))
	v = decodeView(t, env.do(t, http.MethodDelete, "/carts/alice/items/v-keyboard", nil))
	assert.Empty(t, v.Items)
	assert.Empty(t, v.CheckoutID)
}

func TestClearCartForgetsCheckout(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	env.do(t, http.MethodPost, "/carts/alice/items", keyboard(1))

	v := decodeView(t, env.do(t, http.MethodDelete, "/carts/alice", nil))
	assert.Empty(t, v.Items)
	assert.Empty(t, v.CheckoutID)
	assert.Empty(t, v.CheckoutURL)
}

func TestCheckoutRedirect(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})

	resp := env.do(t, http.MethodPost, "/carts/alice/checkout", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "FAILED_PRECONDITION", decodeError(t, resp).Code)

	v := decodeView(t, env.do(t, http.MethodPost, "/carts/alice/items", keyboard(1)))

	resp = env.do(t, http.MethodPost, "/carts/alice/checkout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, v.CheckoutURL, resp.Header.Get("Location"))
}

func TestResyncRecreatesCompletedCheckout(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	first := decodeView(t, env.do(t, http.MethodPost, "/carts/alice/items", keyboard(1)))

	require.NoError(t, env.backend.Complete(context.Background(), first.CheckoutID))

	v := decodeView(t, env.do(t, http.MethodPost, "/carts/alice/resync", nil))
	assert.NotEmpty(t, v.CheckoutID)
	assert.NotEqual(t, first.CheckoutID, v.CheckoutID)
	require.Len(t, v.Items, 1)
}

func TestHealthAndReadiness(t *testing.T) {
	ready := errors.New("snapshot store down")
	env := newTestEnv(t, RouterOptions{
		Ready:   func(context.Context) error { return ready },
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }),
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", nil).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", nil).StatusCode)

	resp := env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "UNAVAILABLE", decodeError(t, resp).Code)
}

func TestStreamReplaysThenFollows(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	env.do(t, http.MethodPost, "/carts/alice/items", keyboard(1))

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/carts/alice/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first cartView
	require.NoError(t, conn.ReadJSON(&first))
	require.Len(t, first.Items, 1)
	assert.Equal(t, 1, first.Items[0].Quantity)

	env.do(t, http.MethodPut, "/carts/alice/items/v-keyboard", map[string]int{"quantity": 3})

	// Intermediate states may be coalesced; wait for the settled one.
	for {
		var v cartView
		require.NoError(t, conn.ReadJSON(&v))
		if !v.Loading && len(v.Items) == 1 && v.Items[0].Quantity == 3 {
			assert.Equal(t, first.CheckoutID, v.CheckoutID)
			return
		}
	}
}
