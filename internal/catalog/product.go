// Package catalog fetches the product catalog from the remote store API and
// tracks the loading state of that single fetch.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog record as served by the store API. It is immutable once fetched.
type Product struct {
	ID          int             `json:"id" validate:"gt=0"`
	Title       string          `json:"title" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count" validate:"gte=0"`
}

// Status is the lifecycle of the catalog fetch.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time copy of the loader state.
// Ready implies Err is empty; Failed implies Products is empty.
type Snapshot struct {
	Status   Status    `json:"status"`
	Products []Product `json:"products"`
	Err      string    `json:"error,omitempty"`
}
