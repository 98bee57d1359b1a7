// Package events holds the payloads published on cart activity.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// CartSubjects matches every cart subject; used as the stream filter.
	CartSubjects           = "storefront.cart.>"
	CartItemAddedSubject   = "storefront.cart.item_added"
	CartItemRemovedSubject = "storefront.cart.item_removed"
)

type CartItemAddedEvent struct {
	SessionID uuid.UUID       `json:"session_id"`
	ProductID int             `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	CartSize  int             `json:"cart_size"`
	CreatedAt time.Time       `json:"created_at"`
}

func (e CartItemAddedEvent) Subject() string {
	return CartItemAddedSubject
}

func (e CartItemAddedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type CartItemRemovedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	ProductID int       `json:"product_id"`
	Removed   bool      `json:"removed"`
	CartSize  int       `json:"cart_size"`
	CreatedAt time.Time `json:"created_at"`
}

func (e CartItemRemovedEvent) Subject() string {
	return CartItemRemovedSubject
}

func (e CartItemRemovedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
