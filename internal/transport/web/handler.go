// Package web serves the server-rendered storefront: the page itself and the form
// posts behind its buttons. Every post redirects back to the page.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Catalog is the read side of the catalog loader plus the manual reload.
type Catalog interface {
	Snapshot() catalog.Snapshot
	Product(id int) (catalog.Product, bool)
	Reload() bool
}

type Handler struct {
	catalog  Catalog
	renderer *view.Renderer
	logger   *slog.Logger
}

func NewHandler(catalog Catalog, renderer *view.Renderer, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		renderer: renderer,
		logger:   logger.With("component", "web"),
	}
}

// RegisterRoutes registers the page routes. Session middleware must already be
// installed on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/cart/items", h.AddItem)
	r.Post("/cart/items/{id}/remove", h.RemoveItem)
	r.Post("/cart/open", h.dispatch(session.OpenCart{}))
	r.Post("/cart/close", h.dispatch(session.CloseCart{}))
	r.Post("/alert/dismiss", h.dispatch(session.DismissAlert{}))
	r.Post("/reload", h.Reload)
}

// Index renders the loading, error or store view.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess, ok := session.FromContext(r.Context())
	if !ok {
		mLogger.ErrorContext(r.Context(), "Session missing from request context")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	page := view.Build(h.catalog.Snapshot(), sess.State(), sess.AlertTTL())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Render(w, page); err != nil {
		mLogger.ErrorContext(r.Context(), "Error rendering page", "view", string(page.Kind), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// AddItem adds the posted product_id to the cart. Ids that are not in the catalog
// are ignored.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	raw := r.PostFormValue("product_id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid product id in form", "product_id", raw)
		redirectHome(w, r)
		return
	}
	product, ok := h.catalog.Product(id)
	if !ok {
		mLogger.WarnContext(r.Context(), "Ignoring add of unknown product", "product_id", id)
		redirectHome(w, r)
		return
	}
	h.apply(r.Context(), mLogger, session.AddToCart{Product: product})
	redirectHome(w, r)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid product id in path", "id", raw)
		redirectHome(w, r)
		return
	}
	h.apply(r.Context(), mLogger, session.RemoveFromCart{ProductID: id})
	redirectHome(w, r)
}

// Reload retries the catalog fetch after a failure.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.catalog.Reload() {
		h.loggerWithReqID(r).InfoContext(r.Context(), "Catalog reload started")
	}
	redirectHome(w, r)
}

func (h *Handler) dispatch(intent session.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.apply(r.Context(), h.loggerWithReqID(r), intent)
		redirectHome(w, r)
	}
}

func (h *Handler) apply(ctx context.Context, logger *slog.Logger, intent session.Intent) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		logger.ErrorContext(ctx, "Session missing from request context")
		return
	}
	if _, err := sess.Dispatch(ctx, intent); err != nil {
		logger.ErrorContext(ctx, "Error applying intent", "session_id", sess.ID().String(), "error", err)
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}
