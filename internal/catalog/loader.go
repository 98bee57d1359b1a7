package catalog

import (
	"context"
	"log/slog"
	"sync"
)

// FailureMessage is what users see when the catalog could not be fetched.
const FailureMessage = "Failed to fetch products"

// Loader owns the catalog for the process lifetime. It performs one fetch on
// Start; the only way to fetch again is an explicit Reload after a failure.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.RWMutex
	ctx      context.Context
	started  bool
	status   Status
	products []Product
	index    map[int]int
	errMsg   string
	done     chan struct{}
}

// NewLoader creates a Loader in the Loading state. Nothing is fetched until Start.
func NewLoader(fetcher Fetcher, logger *slog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		logger:  logger.With("component", "catalog_loader"),
		status:  StatusLoading,
		done:    make(chan struct{}),
	}
}

// Start fires the single catalog fetch in the background. ctx bounds the fetch and
// any later Reload. Calls after the first are no-ops.
func (l *Loader) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.ctx = ctx
	done := l.done
	l.mu.Unlock()

	go l.run(ctx, done)
}

// Reload refetches the catalog, but only from the Failed state. It reports whether
// a new fetch was started.
func (l *Loader) Reload() bool {
	l.mu.Lock()
	if !l.started || l.status != StatusFailed {
		l.mu.Unlock()
		return false
	}
	l.status = StatusLoading
	l.errMsg = ""
	l.done = make(chan struct{})
	ctx, done := l.ctx, l.done
	l.mu.Unlock()

	l.logger.Info("Catalog reload requested")
	go l.run(ctx, done)
	return true
}

func (l *Loader) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	products, err := l.fetcher.FetchProducts(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status = StatusFailed
		l.errMsg = FailureMessage
		l.products = nil
		l.index = nil
		l.logger.ErrorContext(ctx, "Catalog fetch failed", "error", err)
		return
	}
	l.status = StatusReady
	l.products = products
	l.index = make(map[int]int, len(products))
	for i, p := range products {
		l.index[p.ID] = i
	}
	l.logger.InfoContext(ctx, "Catalog loaded", "count", len(products))
}

// Snapshot returns a copy of the current state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	products := make([]Product, len(l.products))
	copy(products, l.products)
	return Snapshot{Status: l.status, Products: products, Err: l.errMsg}
}

// Status returns the current lifecycle state.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Product looks up a loaded product by id.
func (l *Loader) Product(id int) (Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return Product{}, false
	}
	return l.products[i], true
}

// Done is closed when the current fetch settles, successfully or not.
func (l *Loader) Done() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.done
}
