package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cashOnDelivery"
	PaymentMethodBankTransfer   PaymentMethod = "bankTransfer"
)

type ShippingDetails struct {
	FullName string `bson:"fullName" json:"fullName" validate:"required"`
	Email    string `bson:"email" json:"email" validate:"required,email"`
	Phone    string `bson:"phone" json:"phone" validate:"required"`
	Address  string `bson:"address" json:"address" validate:"required"`
	City     string `bson:"city" json:"city" validate:"required"`
	ZipCode  string `bson:"zipCode" json:"zipCode" validate:"required"`
	Country  string `bson:"country" json:"country" validate:"required"`
}

type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Title     string  `bson:"title" json:"title"`
	Image     string  `bson:"image" json:"image"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

// Order is the snapshot persisted in the "orders" collection.
type Order struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID               string             `bson:"userId" json:"userId"`
	Items                []OrderItem        `bson:"items" json:"items"`
	TotalAmount          float64            `bson:"totalAmount" json:"totalAmount"`
	TotalAmountConverted *float64           `bson:"totalAmountConverted,omitempty" json:"totalAmountConverted,omitempty"`
	CurrencyAtOrder      string             `bson:"currencyAtOrder,omitempty" json:"currencyAtOrder,omitempty"`
	ExchangeRateAtOrder  *float64           `bson:"exchangeRateAtOrder,omitempty" json:"exchangeRateAtOrder,omitempty"`
	ShippingDetails      *ShippingDetails   `bson:"shippingDetails" json:"shippingDetails"`
	PaymentMethod        PaymentMethod      `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Status               OrderStatus        `bson:"status" json:"status"`
	OrderDate            time.Time          `bson:"orderDate" json:"orderDate"`
}

// CreateOrderRequest is accepted as-is by POST /api/orders; presence of the
// required fields is checked by the order service.
type CreateOrderRequest struct {
	UserID               string           `json:"userId"`
	Items                []OrderItem      `json:"items"`
	TotalAmount          float64          `json:"totalAmount"`
	TotalAmountPKR       float64          `json:"totalAmountPKR,omitempty"`
	TotalAmountConverted *float64         `json:"totalAmountConverted,omitempty"`
	CurrencyAtOrder      string           `json:"currencyAtOrder,omitempty"`
	ExchangeRateAtOrder  *float64         `json:"exchangeRateAtOrder,omitempty"`
	ShippingDetails      *ShippingDetails `json:"shippingDetails"`
	PaymentMethod        PaymentMethod    `json:"paymentMethod,omitempty"`
}

// Total prefers totalAmount and falls back to the storefront's legacy
// totalAmountPKR field.
func (r *CreateOrderRequest) Total() float64 {
	if r.TotalAmount != 0 {
		return r.TotalAmount
	}
	return r.TotalAmountPKR
}

type CheckoutRequest struct {
	ShippingDetails ShippingDetails `json:"shippingDetails" validate:"required"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" validate:"required,oneof=cashOnDelivery bankTransfer"`
}

type OrderPlacedResponse struct {
	Message    string `json:"message"`
	InsertedID string `json:"insertedId"`
}
