package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/resilience"
	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodyBytes caps the catalog payload; the store API returns a few dozen records.
const maxBodyBytes = 8 << 20

// Fetcher retrieves the full product list.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// ClientConfig configures the upstream catalog endpoint.
type ClientConfig struct {
	URL     string
	Timeout time.Duration
	Breaker config.CircuitBreakerConfig
}

// Client performs the catalog GET. It never retries; a circuit breaker makes
// repeated manual reloads fail fast while the upstream is down.
type Client struct {
	url      string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]Product]
	validate *validator.Validate
	logger   *slog.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a Client. A nil httpClient gets an otelhttp-instrumented default.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger = logger.With("component", "catalog")
	return &Client{
		url:      cfg.URL,
		http:     httpClient,
		breaker:  resilience.NewCircuitBreaker[[]Product]("catalog", cfg.Breaker, nil, logger),
		validate: validator.New(),
		logger:   logger,
	}
}

// FetchProducts returns the catalog or an error wrapping ErrCatalogFetch. Only
// transport, status and decode failures fail the fetch; records that do not
// validate are dropped.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	products, err := c.breaker.Execute(func() ([]Product, error) {
		return c.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.WarnContext(ctx, "Catalog fetch short-circuited", "error", err)
		return nil, fmt.Errorf("%w: %w", sferrors.ErrCatalogUnavailable, err)
	}
	return products, err
}

func (c *Client) fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sferrors.ErrCatalogFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sferrors.ErrCatalogFetch, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", sferrors.ErrCatalogFetch, resp.StatusCode)
	}

	var products []Product
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", sferrors.ErrCatalogFetch, err)
	}
	valid := products[:0]
	for i, p := range products {
		if err := c.validateProduct(p); err != nil {
			c.logger.WarnContext(ctx, "Skipping invalid catalog record", "index", i, "ID", p.ID, "error", err)
			continue
		}
		valid = append(valid, p)
	}
	c.logger.DebugContext(ctx, "Catalog fetched",
		"count", len(valid),
		"skipped", len(products)-len(valid),
		"duration_ms", float64(time.Since(start).Nanoseconds())/1e6)
	return valid, nil
}

func (c *Client) validateProduct(p Product) error {
	if err := c.validate.Struct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("negative price %s for product %d", p.Price, p.ID)
	}
	return nil
}
