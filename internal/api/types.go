package api

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog entry as served by the storefront API. Prices arrive
// as decimal strings and are parsed on receipt.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Image         string          `json:"image"`
	Digital       bool            `json:"digital"`
	Brand         string          `json:"brand"`
	Description   string          `json:"description"`
	Sizes         []string        `json:"sizes"`
	Images        []string        `json:"images"`
}

// CartItem is one cart line. LineTotal is always UnitPrice * Quantity; the
// server computes it for server-backed carts and the cart engine computes it
// for guest carts.
type CartItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"product"`
	UnitPrice decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"total"`
}

// CartData is the canonical cart payload after normalization. Server
// responses historically used either snake_case or camelCase field names;
// both are accepted on the wire and collapsed into this one shape before
// anything else sees them.
type CartData struct {
	TotalItems int
	TotalCost  decimal.Decimal
	Items      []CartItem
	Shipping   bool
}

// cartPayload tolerates the two historical response shapes for cart data.
type cartPayload struct {
	TotalItems      *int             `json:"total_items"`
	TotalItemsCamel *int             `json:"totalItems"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
	TotalCostCamel  *decimal.Decimal `json:"totalCost"`
	Items           []CartItem       `json:"items"`
	ItemList        []CartItem       `json:"itemList"`
	Shipping        bool             `json:"shipping"`
}

func (p cartPayload) normalize() CartData {
	data := CartData{Shipping: p.Shipping, TotalCost: decimal.Zero}
	switch {
	case p.TotalItems != nil:
		data.TotalItems = *p.TotalItems
	case p.TotalItemsCamel != nil:
		data.TotalItems = *p.TotalItemsCamel
	}
	switch {
	case p.TotalCost != nil:
		data.TotalCost = *p.TotalCost
	case p.TotalCostCamel != nil:
		data.TotalCost = *p.TotalCostCamel
	}
	switch {
	case p.Items != nil:
		data.Items = p.Items
	case p.ItemList != nil:
		data.Items = p.ItemList
	}
	return data
}

// CartMutation is the server's answer to a cart update or order creation.
// Err carries a domain-level failure such as "Item does not exist"; in that
// case UpdatedItem is absent and ItemID names the offending product.
// UpdatedItem is also absent when the server deleted the line entirely.
type CartMutation struct {
	Message     string          `json:"message"`
	Err         string          `json:"error"`
	ItemID      int64           `json:"item_id"`
	TotalItems  int             `json:"total_items"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	UpdatedItem *CartItem       `json:"updated_item"`
}

// TokenPair holds the JWT access/refresh pair issued at login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UserProfile is the authenticated user's account record.
type UserProfile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SignupRequest is the account creation payload. Validate tags are checked
// client-side before the request is issued.
type SignupRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username" validate:"required,min=3"`
	Password   string `json:"password" validate:"required,min=8"`
	RePassword string `json:"re_password" validate:"required,eqfield=Password"`
}

// ShippingInfo is the delivery address submitted at checkout.
type ShippingInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
}

type verifyResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}
