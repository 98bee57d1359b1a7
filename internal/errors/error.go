// Package errors provides the sentinel errors shared by the storefront packages.
package errors

import (
	"errors"
	"fmt"
)

// ErrCatalogFetch is the single failure class of the catalog loader: transport
// error, non-2xx status or an undecodable payload.
var ErrCatalogFetch = errors.New("failed to fetch products")

// ErrCatalogUnavailable is returned without calling upstream while the breaker is open.
var ErrCatalogUnavailable = fmt.Errorf("product catalog temporarily unavailable: %w", ErrCatalogFetch)

var ErrCatalogNotReady = errors.New("product catalog is not loaded")

var ErrProductNotFound = errors.New("product not found")

var ErrSessionNotFound = errors.New("session not found")

var ErrUnknownIntent = errors.New("unknown intent")
