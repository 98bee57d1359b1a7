package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var reasonKey = attribute.Key("reason")

// Config tunes session lifetime.
type Config struct {
	AlertTTL      time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// Store is the in-memory set of live sessions.
type Store struct {
	cfg  Config
	deps *deps

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore creates an empty Store. A nil publisher drops cart events.
func NewStore(cfg Config, publisher messaging.Publisher, logger *slog.Logger) (*Store, error) {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	c, err := newCounters(otel.Meter("storefront"))
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg: cfg,
		deps: &deps{
			publisher: publisher,
			logger:    logger.With("component", "session"),
			counters:  c,
			now:       time.Now,
		},
		sessions: make(map[uuid.UUID]*Session),
	}, nil
}

func newCounters(meter metric.Meter) (*counters, error) {
	added, err := meter.Int64Counter("cart_items_added", metric.WithDescription("Total number of products added to carts"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cart_items_added counter: %w", err)
	}
	removed, err := meter.Int64Counter("cart_items_removed", metric.WithDescription("Total number of products removed from carts"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cart_items_removed counter: %w", err)
	}
	duplicates, err := meter.Int64Counter("cart_duplicate_adds", metric.WithDescription("Total number of rejected duplicate adds"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cart_duplicate_adds counter: %w", err)
	}
	cleared, err := meter.Int64Counter("alerts_cleared", metric.WithDescription("Total number of cleared alerts by reason"))
	if err != nil {
		return nil, fmt.Errorf("failed to create alerts_cleared counter: %w", err)
	}
	return &counters{added: added, removed: removed, duplicates: duplicates, cleared: cleared}, nil
}

// Get returns a live session and marks it as recently used.
// Returns ErrSessionNotFound if no session exists with the given ID.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sferrors.ErrSessionNotFound
	}
	// Touched under the store lock so a concurrent Sweep cannot evict it in between.
	sess.touch()
	return sess, nil
}

// Create starts a new session with an empty cart.
func (s *Store) Create() *Session {
	sess := newSession(uuid.New(), s.deps, s.cfg.AlertTTL)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

// GetOrCreate returns the session for id, or a new one when id is unknown or has
// expired. created reports which happened; a new session always gets a fresh ID.
func (s *Store) GetOrCreate(id uuid.UUID) (sess *Session, created bool) {
	if id != uuid.Nil {
		if sess, err := s.Get(id); err == nil {
			return sess, false
		}
	}
	return s.Create(), true
}

// Delete removes a session and stops its alert timer.
// Returns ErrSessionNotFound if no session exists with the given ID.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return sferrors.ErrSessionNotFound
	}
	sess.close()
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	now := s.deps.now()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.cfg.IdleTimeout {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	return len(expired)
}

// Run sweeps idle sessions every SweepInterval until ctx is done, then closes the
// remaining sessions.
func (s *Store) Run(ctx context.Context) error {
	defer s.closeAll()
	if s.cfg.SweepInterval <= 0 || s.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.deps.logger.InfoContext(ctx, "Evicted idle sessions", "count", n, "live", s.Len())
			}
		}
	}
}

func (s *Store) closeAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}
