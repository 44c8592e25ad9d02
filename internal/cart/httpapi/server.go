package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dwikikusuma/storefront/internal/cart/app"
	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Carts resolves a cart id to its running Service.
type Carts interface {
	Get(ctx context.Context, cartID string) (*app.Service, error)
}

type Server struct {
	carts          Carts
	log            *slog.Logger
	allowedOrigins []string
}

func NewServer(carts Carts, log *slog.Logger, allowedOrigins []string) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{carts: carts, log: log, allowedOrigins: allowedOrigins}
}

// cartView is a CartState plus its computed subtotal.
type cartView struct {
	domain.CartState
	Subtotal decimal.Decimal `json:"subtotal"`
}

func toView(st domain.CartState) cartView {
	if st.Items == nil {
		st.Items = []domain.CartItem{}
	}
	return cartView{CartState: st, Subtotal: st.Subtotal()}
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toView(svc.State()))
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}

	var item domain.CartItem
	if err := decodeBody(w, r, &item); err != nil {
		s.writeError(w, r, status.Errorf(codes.InvalidArgument, "invalid item: %v", err))
		return
	}

	if err := svc.AddItem(r.Context(), item); err != nil {
		s.writeError(w, r, toStatus("error adding item", err))
		return
	}
	writeJSON(w, http.StatusOK, toView(svc.State()))
}

func (s *Server) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, status.Errorf(codes.InvalidArgument, "invalid body: %v", err))
		return
	}
	if req.Quantity == nil {
		s.writeError(w, r, status.Error(codes.InvalidArgument, "quantity is required"))
		return
	}

	if err := svc.UpdateQuantity(r.Context(), chi.URLParam(r, "variantID"), *req.Quantity); err != nil {
		s.writeError(w, r, toStatus("error setting item quantity", err))
		return
	}
	writeJSON(w, http.StatusOK, toView(svc.State()))
}

func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}

	if err := svc.RemoveItem(r.Context(), chi.URLParam(r, "variantID")); err != nil {
		s.writeError(w, r, toStatus("error removing item", err))
		return
	}
	writeJSON(w, http.StatusOK, toView(svc.State()))
}

func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}

	if err := svc.ClearCart(r.Context()); err != nil {
		s.writeError(w, r, toStatus("error clearing cart", err))
		return
	}
	writeJSON(w, http.StatusOK, toView(svc.State()))
}

func (s *Server) Resync(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}

	if err := svc.Resync(r.Context()); err != nil {
		s.writeError(w, r, toStatus("error syncing cart", err))
		return
	}
	writeJSON(w, http.StatusOK, toView(svc.State()))
}

// Checkout redirects the shopper to the hosted checkout page.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.cart(w, r)
	if !ok {
		return
	}

	url, err := svc.Checkout()
	if err != nil {
		s.writeError(w, r, toStatus("error starting checkout", err))
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (s *Server) cart(w http.ResponseWriter, r *http.Request) (*app.Service, bool) {
	svc, err := s.carts.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		s.writeError(w, r, toStatus("error opening cart", err))
		return nil, false
	}
	return svc, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// toStatus converts cart errors into gRPC status errors.
func toStatus(msg string, err error) error {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		return status.Errorf(codes.InvalidArgument, "%s: %v", msg, err)
	case errors.Is(err, app.ErrCheckoutNotFound):
		return status.Errorf(codes.NotFound, "%s: %v", msg, err)
	case errors.Is(err, app.ErrNothingToCheckout):
		return status.Errorf(codes.FailedPrecondition, "%s: %v", msg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s: %v", msg, err)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s: %v", msg, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", msg, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, name, msg := httpStatusFromGRPC(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
	}
	writeJSON(w, code, errorBody{Code: name, Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
