// Package view turns a catalog snapshot and a session state into a Page and
// renders it as HTML.
package view

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/shopspring/decimal"
)

const (
	Brand           = "Fake Store"
	Tagline         = "Discover amazing products and add them to your cart"
	descriptionMax  = 100
	maxBadgeCount   = 99
	loadingRefreshS = 1
)

// Kind selects which of the three top-level views is shown.
type Kind string

const (
	KindLoading Kind = "loading"
	KindError   Kind = "error"
	KindStore   Kind = "store"
)

// Page is everything the templates need; no logic runs at render time.
type Page struct {
	Kind           Kind
	Brand          string
	Tagline        string
	Error          string
	RefreshSeconds int
	Navbar         Navbar
	Cards          []Card
	Modal          *Modal
	Bindings       ModalBindings
	Toast          *Toast
}

type Navbar struct {
	Count     int
	ShowBadge bool
	Badge     string
}

type Card struct {
	ID          int
	Title       string
	Image       string
	Category    string
	Description string
	Price       string
	Rating      string
	InCart      bool
}

type Modal struct {
	Header string
	Items  []ModalItem
	Total  string
}

type ModalItem struct {
	ID       int
	Title    string
	Image    string
	Category string
	Price    string
}

// ModalBindings are the page-level side effects of an open cart modal. They are
// derived from the open flag alone, so closing the modal drops both.
type ModalBindings struct {
	ScrollLocked   bool
	EscapeListener bool
}

type Toast struct {
	Text     string
	Severity string
	TTLMs    int64
}

// Bindings returns the side effects active for the given modal state.
func Bindings(open bool) ModalBindings {
	return ModalBindings{ScrollLocked: open, EscapeListener: open}
}

// Build assembles the page for a catalog snapshot and a session state. alertTTL is
// passed to the client as the auto-hide hint.
func Build(snap catalog.Snapshot, st session.State, alertTTL time.Duration) Page {
	p := Page{Brand: Brand, Tagline: Tagline}
	switch snap.Status {
	case catalog.StatusLoading:
		p.Kind = KindLoading
		p.RefreshSeconds = loadingRefreshS
		return p
	case catalog.StatusFailed:
		p.Kind = KindError
		p.Error = snap.Err
		if p.Error == "" {
			p.Error = catalog.FailureMessage
		}
		return p
	}

	p.Kind = KindStore
	p.Navbar = BuildNavbar(st.CartCount)

	inCart := make(map[int]struct{}, len(st.Cart))
	for _, e := range st.Cart {
		inCart[e.ID] = struct{}{}
	}
	p.Cards = make([]Card, 0, len(snap.Products))
	for _, prod := range snap.Products {
		_, ok := inCart[prod.ID]
		p.Cards = append(p.Cards, BuildCard(prod, ok))
	}

	if st.CartOpen {
		p.Modal = buildModal(st)
	}
	p.Bindings = Bindings(st.CartOpen)

	if st.Alert != nil {
		p.Toast = &Toast{
			Text:     st.Alert.Text,
			Severity: string(st.Alert.Severity),
			TTLMs:    remaining(st.Alert.RaisedAt, alertTTL).Milliseconds(),
		}
	}
	return p
}

func BuildNavbar(count int) Navbar {
	return Navbar{Count: count, ShowBadge: count > 0, Badge: BadgeText(count)}
}

// BadgeText caps the displayed cart count at "99+".
func BadgeText(count int) string {
	if count > maxBadgeCount {
		return strconv.Itoa(maxBadgeCount) + "+"
	}
	return strconv.Itoa(count)
}

func BuildCard(p catalog.Product, inCart bool) Card {
	c := Card{
		ID:          p.ID,
		Title:       p.Title,
		Image:       p.Image,
		Category:    p.Category,
		Description: Truncate(p.Description, descriptionMax),
		Price:       FormatPrice(p.Price),
		InCart:      inCart,
	}
	if p.Rating != nil {
		c.Rating = fmt.Sprintf("%s (%d)", p.Rating.Rate.String(), p.Rating.Count)
	}
	return c
}

// Truncate cuts s to n characters and appends "..." when it was longer.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func buildModal(st session.State) *Modal {
	m := &Modal{
		Header: fmt.Sprintf("Shopping Cart (%d items)", st.CartCount),
		Items:  make([]ModalItem, 0, len(st.Cart)),
		Total:  FormatPrice(st.CartTotal),
	}
	for _, e := range st.Cart {
		m.Items = append(m.Items, ModalItem{
			ID:       e.ID,
			Title:    e.Title,
			Image:    e.Image,
			Category: e.Category,
			Price:    FormatPrice(e.Price),
		})
	}
	return m
}

// remaining is how much of the TTL is left for an alert raised at raisedAt.
func remaining(raisedAt time.Time, ttl time.Duration) time.Duration {
	left := ttl - time.Since(raisedAt)
	if left < 0 {
		return 0
	}
	return left
}
