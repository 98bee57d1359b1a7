package session

import "github.com/abgdnv/storefront/internal/catalog"

// Intent is a user action applied to a session by Dispatch.
type Intent interface {
	intentName() string
}

type AddToCart struct {
	Product catalog.Product
}

type RemoveFromCart struct {
	ProductID int
}

type OpenCart struct{}

type CloseCart struct{}

type DismissAlert struct{}

func (AddToCart) intentName() string      { return "add_to_cart" }
func (RemoveFromCart) intentName() string { return "remove_from_cart" }
func (OpenCart) intentName() string       { return "open_cart" }
func (CloseCart) intentName() string      { return "close_cart" }
func (DismissAlert) intentName() string   { return "dismiss_alert" }
