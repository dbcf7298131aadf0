package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, fields bson.M) (int64, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepo(db *mongo.Database) ProductRepository {
	return &productRepository{collection: db.Collection(productsCollection)}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(dbCtx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var product models.Product

	err := r.collection.FindOne(dbCtx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(dbCtx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(dbCtx)

	products := []*models.Product{}
	if err := cursor.All(dbCtx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

// UpdateProduct applies fields with $set. A missing document is reported as
// ErrProductNotFound; a matched document with identical values returns 0.
func (r *productRepository) UpdateProduct(ctx context.Context, id primitive.ObjectID, fields bson.M) (int64, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateOne(dbCtx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return 0, fmt.Errorf("failed to update product: %w", err)
	}

	if result.MatchedCount == 0 {
		return 0, ErrProductNotFound
	}

	return result.ModifiedCount, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id primitive.ObjectID) (int64, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(dbCtx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return 0, ErrProductNotFound
	}

	return result.DeletedCount, nil
}
