package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product is a flat catalog record stored in the "products" collection.
// Prices are held in the canonical currency.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Image       string             `bson:"image" json:"image"`
	Price       float64            `bson:"price" json:"price"`
	OldPrice    *float64           `bson:"oldPrice,omitempty" json:"oldPrice,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	Discount    *float64           `bson:"discount,omitempty" json:"discount,omitempty"`
	Category    string             `bson:"category" json:"category"`
	Subcategory string             `bson:"subcategory" json:"subcategory"`
}

// ProductView is a product as rendered for a particular display currency.
type ProductView struct {
	Product
	DisplayPrice    string `json:"displayPrice,omitempty"`
	DisplayCurrency string `json:"displayCurrency,omitempty"`
}

// CreateProductRequest lists its required fields in the order they are reported.
type CreateProductRequest struct {
	Title       string   `json:"title" validate:"required"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Category    string   `json:"category" validate:"required"`
	Subcategory string   `json:"subcategory" validate:"required"`
	Image       string   `json:"image" validate:"required"`
	OldPrice    *float64 `json:"oldPrice,omitempty" validate:"omitempty,gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Discount    *float64 `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// UpdateProductRequest only carries the fields that should be overwritten.
type UpdateProductRequest struct {
	ID          string   `json:"id" validate:"required"`
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Image       *string  `json:"image,omitempty" validate:"omitempty,min=1"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	OldPrice    *float64 `json:"oldPrice,omitempty" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Discount    *float64 `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,min=1"`
	Subcategory *string  `json:"subcategory,omitempty" validate:"omitempty,min=1"`
}

type DeleteProductRequest struct {
	ID string `json:"id" validate:"required"`
}

type InsertedResponse struct {
	InsertedID string `json:"insertedId"`
}

type ModifiedResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

type DeletedResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}
