package models

import "time"

// CartLineItem is one product-and-quantity entry in a user's cart. ProductID is
// unique within a single user's cart and doubles as the document key.
type CartLineItem struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Title     string    `bson:"title" json:"title"`
	Image     string    `bson:"image" json:"image"`
	Price     float64   `bson:"price" json:"price"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// ProductRef is what a caller hands to the cart when adding a product. Both
// spellings of the identifier are accepted; ID wins over LegacyID.
type ProductRef struct {
	ID       string  `json:"_id,omitempty"`
	LegacyID string  `json:"id,omitempty"`
	Title    string  `json:"title"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
}

func (p ProductRef) Identifier() string {
	if p.ID != "" {
		return p.ID
	}

	return p.LegacyID
}

type AddItemRequest struct {
	ProductID string  `json:"productId"`
	LegacyID  string  `json:"id,omitempty"`
	Title     string  `json:"title" validate:"required"`
	Image     string  `json:"image" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the rendered view of a cart store snapshot.
type CartResponse struct {
	State           string         `json:"state"`
	Items           []CartLineItem `json:"items"`
	TotalItems      int            `json:"totalItems"`
	Subtotal        float64        `json:"subtotal"`
	CartLoading     bool           `json:"cartLoading"`
	CartError       string         `json:"cartError,omitempty"`
	Currency        string         `json:"currency,omitempty"`
	DisplaySubtotal string         `json:"displaySubtotal,omitempty"`
}
