// Package session keeps per-visitor storefront state: the cart, the current alert
// and whether the cart modal is open. All changes go through Session.Dispatch.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storefront/internal/alert"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

const (
	MsgAdded     = "Product added to cart successfully!"
	MsgDuplicate = "Item already added to the cart"
	MsgRemoved   = "Product removed from cart"
)

// State is an immutable snapshot of a session.
type State struct {
	Cart      []cart.Entry    `json:"cart"`
	CartCount int             `json:"cart_count"`
	CartTotal decimal.Decimal `json:"cart_total"`
	Alert     *alert.Message  `json:"alert,omitempty"`
	CartOpen  bool            `json:"cart_open"`
}

// Session is one visitor's state. Dispatch calls are serialized.
type Session struct {
	id       uuid.UUID
	deps     *deps
	notifier *alert.Notifier

	mu       sync.Mutex
	cart     *cart.Cart
	cartOpen bool
	lastSeen time.Time
}

func newSession(id uuid.UUID, d *deps, ttl time.Duration) *Session {
	s := &Session{
		id:       id,
		deps:     d,
		notifier: alert.NewNotifier(ttl),
		cart:     cart.New(),
		lastSeen: d.now(),
	}
	logger := d.logger.With("session_id", id.String())
	s.notifier.OnChange(func(m alert.Message, reason alert.ClearReason) {
		logger.Debug("Alert cleared", "alert_id", m.ID.String(), "reason", string(reason))
		d.counters.alertsCleared(context.Background(), reason)
	})
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Dispatch applies intent and returns the resulting state. Cart events are
// published after the state change; publish failures are only logged.
func (s *Session) Dispatch(ctx context.Context, intent Intent) (State, error) {
	state, _, err := s.apply(ctx, intent)
	return state, err
}

// Add dispatches AddToCart and also reports whether the product was appended or
// was already in the cart, as decided under the session lock.
func (s *Session) Add(ctx context.Context, p catalog.Product) (State, cart.AddResult, error) {
	return s.apply(ctx, AddToCart{Product: p})
}

func (s *Session) apply(ctx context.Context, intent Intent) (State, cart.AddResult, error) {
	s.mu.Lock()
	s.lastSeen = s.deps.now()

	var event messaging.Event
	var result cart.AddResult
	switch in := intent.(type) {
	case AddToCart:
		result = s.cart.Add(in.Product)
		if result == cart.Added {
			s.notifier.Raise(MsgAdded, alert.SeveritySuccess)
			s.deps.counters.added.Add(ctx, 1)
			event = events.CartItemAddedEvent{
				SessionID: s.id,
				ProductID: in.Product.ID,
				Price:     in.Product.Price,
				CartSize:  s.cart.Count(),
				CreatedAt: s.deps.now().UTC(),
			}
		} else {
			s.notifier.Raise(MsgDuplicate, alert.SeverityWarning)
			s.deps.counters.duplicates.Add(ctx, 1)
		}
	case RemoveFromCart:
		removed := s.cart.Remove(in.ProductID)
		s.notifier.Raise(MsgRemoved, alert.SeverityInfo)
		if removed {
			s.deps.counters.removed.Add(ctx, 1)
		}
		event = events.CartItemRemovedEvent{
			SessionID: s.id,
			ProductID: in.ProductID,
			Removed:   removed,
			CartSize:  s.cart.Count(),
			CreatedAt: s.deps.now().UTC(),
		}
	case OpenCart:
		s.cartOpen = true
	case CloseCart:
		s.cartOpen = false
	case DismissAlert:
		s.notifier.Dismiss()
	default:
		s.mu.Unlock()
		return State{}, result, fmt.Errorf("%w: %T", sferrors.ErrUnknownIntent, intent)
	}
	state := s.stateLocked()
	s.mu.Unlock()

	if event != nil {
		if err := s.deps.publisher.Publish(ctx, event); err != nil {
			s.deps.logger.WarnContext(ctx, "Failed to publish cart event",
				"session_id", s.id.String(), "subject", event.Subject(), "error", err)
		}
	}
	return state, result, nil
}

func (s *Session) stateLocked() State {
	st := State{
		Cart:      s.cart.Entries(),
		CartCount: s.cart.Count(),
		CartTotal: s.cart.Total(),
		CartOpen:  s.cartOpen,
	}
	if m, ok := s.notifier.Current(); ok {
		st.Alert = &m
	}
	return st
}

// AlertTTL is the auto-clear delay of this session's alerts.
func (s *Session) AlertTTL() time.Duration {
	return s.notifier.TTL()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.deps.now()
	s.mu.Unlock()
}

func (s *Session) close() {
	s.notifier.Close()
}

// deps are shared by every session of a Store.
type deps struct {
	publisher messaging.Publisher
	logger    *slog.Logger
	counters  *counters
	now       func() time.Time
}

type counters struct {
	added      metric.Int64Counter
	removed    metric.Int64Counter
	duplicates metric.Int64Counter
	cleared    metric.Int64Counter
}

func (c *counters) alertsCleared(ctx context.Context, reason alert.ClearReason) {
	c.cleared.Add(ctx, 1, metric.WithAttributes(reasonKey.String(string(reason))))
}
