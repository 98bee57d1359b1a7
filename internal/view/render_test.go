package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/alert"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, snap catalog.Snapshot, st session.State) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, Build(snap, st, alert.DefaultTTL)))
	return buf.String()
}

func TestRender_Loading(t *testing.T) {
	html := render(t, catalog.Snapshot{Status: catalog.StatusLoading}, session.State{})

	assert.Contains(t, html, "loading-spinner")
	assert.Contains(t, html, `http-equiv="refresh"`)
	assert.NotContains(t, html, "product-grid")
}

func TestRender_Error(t *testing.T) {
	html := render(t, catalog.Snapshot{Status: catalog.StatusFailed, Err: catalog.FailureMessage}, session.State{})

	assert.Contains(t, html, "Failed to fetch products")
	assert.Contains(t, html, `action="/reload"`)
	assert.Contains(t, html, "Retry")
	assert.NotContains(t, html, "product-grid")
}

func TestRender_StoreClosedModal(t *testing.T) {
	// given
	snap := catalog.Snapshot{Status: catalog.StatusReady, Products: testCatalog()}

	// when
	html := render(t, snap, session.State{CartTotal: decimal.Zero})

	// then
	assert.Contains(t, html, "Fake Store")
	assert.Contains(t, html, "$9.99")
	assert.Contains(t, html, "3.9 (120)")
	assert.Contains(t, html, "Add to Cart")
	assert.NotContains(t, html, "Added to Cart")
	assert.NotContains(t, html, "cart-badge")
	assert.NotContains(t, html, "cart-modal")
	assert.NotContains(t, html, "scroll-locked", "closed modal must not lock scrolling")
	assert.NotContains(t, html, "escape-listener", "closed modal must not listen for Escape")
	assert.NotContains(t, html, `id="toast"`)
}

func TestRender_StoreOpenModal(t *testing.T) {
	// given
	products := testCatalog()
	entry := cart.Entry{Product: products[1], Quantity: 1}
	st := session.State{
		Cart: []cart.Entry{entry}, CartCount: 1, CartTotal: entry.Price, CartOpen: true,
		Alert: &alert.Message{Text: session.MsgDuplicate, Severity: alert.SeverityWarning, RaisedAt: time.Now()},
	}

	// when
	html := render(t, catalog.Snapshot{Status: catalog.StatusReady, Products: products}, st)

	// then
	assert.Contains(t, html, "Shopping Cart (1 items)")
	assert.Contains(t, html, "Added to Cart")
	assert.Contains(t, html, `action="/cart/items/2/remove"`)
	assert.Contains(t, html, "Proceed to Checkout")
	assert.Contains(t, html, `id="cart-total">$5.00`)
	assert.Contains(t, html, "scroll-locked")
	assert.Contains(t, html, "escape-listener")
	assert.Contains(t, html, "Item already added to the cart")
	assert.Contains(t, html, `data-severity="warning"`)
	assert.Contains(t, html, "data-ttl-ms=")
}

func TestRender_EmptyOpenModal(t *testing.T) {
	st := session.State{CartTotal: decimal.Zero, CartOpen: true}

	html := render(t, catalog.Snapshot{Status: catalog.StatusReady, Products: testCatalog()}, st)

	assert.Contains(t, html, "Shopping Cart (0 items)")
	assert.Contains(t, html, "Your cart is empty")
	assert.NotContains(t, html, "Proceed to Checkout")
}

func TestRender_EscapesProductText(t *testing.T) {
	products := []catalog.Product{{ID: 9, Title: "<script>alert(1)</script>", Price: decimal.NewFromInt(1)}}

	html := render(t, catalog.Snapshot{Status: catalog.StatusReady, Products: products}, session.State{})

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}
