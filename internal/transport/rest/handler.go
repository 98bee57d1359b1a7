// Package rest provides the JSON API over the catalog and the visitor's cart.
package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/alert"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Catalog is the read side of the catalog loader.
type Catalog interface {
	Snapshot() catalog.Snapshot
	Status() catalog.Status
	Product(id int) (catalog.Product, bool)
}

type Handler struct {
	catalog  Catalog
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the storefront API.
func NewHandler(catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// AddItemRequest is the body of POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

// CartResponse is the JSON view of a session.
type CartResponse struct {
	Items []cart.Entry    `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
	Alert *alert.Message  `json:"alert,omitempty"`
	Open  bool            `json:"open"`
}

func toCartResponse(st session.State) CartResponse {
	items := st.Cart
	if items == nil {
		items = []cart.Entry{}
	}
	return CartResponse{Items: items, Count: st.CartCount, Total: st.CartTotal, Alert: st.Alert, Open: st.CartOpen}
}

// RegisterRoutes registers the API routes. session routes are wrapped with
// sessionMW; health probes are not.
func (h *Handler) RegisterRoutes(r chi.Router, sessionMW func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Products)
		r.Group(func(r chi.Router) {
			r.Use(sessionMW)
			r.Get("/cart", h.Cart)
			r.Post("/cart/items", h.AddItem)
			r.Delete("/cart/items/{id}", h.RemoveItem)
			r.Delete("/alert", h.DismissAlert)
		})
	})
	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadyCheck)
}

// Products returns the catalog once it is loaded.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	snap := h.catalog.Snapshot()
	switch snap.Status {
	case catalog.StatusReady:
		mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(snap.Products))
		web.RespondJSON(w, mLogger, http.StatusOK, snap.Products)
	case catalog.StatusFailed:
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, snap.Err)
	default:
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, sferrors.ErrCatalogNotReady.Error())
	}
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess, ok := h.sessionFrom(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, toCartResponse(sess.State()))
}

// AddItem adds a catalog product to the cart: 201 when added, 200 when it was
// already there.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess, ok := h.sessionFrom(w, r, mLogger)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidation(w, r, mLogger, err)
		return
	}
	if h.catalog.Status() != catalog.StatusReady {
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, sferrors.ErrCatalogNotReady.Error())
		return
	}
	product, found := h.catalog.Product(req.ProductID)
	if !found {
		mLogger.WarnContext(r.Context(), "Product not found", "ID", req.ProductID)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", req.ProductID))
		return
	}

	st, result, err := sess.Add(r.Context(), product)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error adding product to cart", "ID", product.ID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to add product to cart")
		return
	}
	status := http.StatusCreated
	if result == cart.Duplicate {
		status = http.StatusOK
	}
	mLogger.InfoContext(r.Context(), "Cart add handled", "ID", product.ID, "result", result.String())
	web.RespondJSON(w, mLogger, status, toCartResponse(st))
}

// RemoveItem removes a product from the cart. Removing an absent product is not an error.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess, ok := h.sessionFrom(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseIntID(w, r, mLogger, "id")
	if !ok {
		return
	}
	st, err := sess.Dispatch(r.Context(), session.RemoveFromCart{ProductID: id})
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error removing product from cart", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to remove product from cart")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, toCartResponse(st))
}

func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess, ok := h.sessionFrom(w, r, mLogger)
	if !ok {
		return
	}
	if _, err := sess.Dispatch(r.Context(), session.DismissAlert{}); err != nil {
		mLogger.ErrorContext(r.Context(), "Error dismissing alert", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to dismiss alert")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadyCheck reports ready once the catalog has loaded.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	status := h.catalog.Status()
	code := http.StatusOK
	if status != catalog.StatusReady {
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusOK {
		mLogger.DebugContext(r.Context(), "Not ready", "catalog", status.String())
	}
	web.RespondJSON(w, mLogger, code, map[string]string{"catalog": status.String()})
}

func (h *Handler) sessionFrom(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "Session missing from request context")
		web.RespondError(w, logger, http.StatusInternalServerError, "Session unavailable")
	}
	return sess, ok
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
