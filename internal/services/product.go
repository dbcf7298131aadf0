package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, req *models.UpdateProductRequest) (int64, error)
	DeleteProduct(ctx context.Context, id string) (int64, error)
}

type productService struct {
	repo     repository.ProductRepository
	cache    cache.Cache
	sanitize *bluemonday.Policy
}

// NewProductService wires the catalog; productCache may be nil.
func NewProductService(repo repository.ProductRepository, productCache cache.Cache) ProductService {
	return &productService{repo: repo, cache: productCache, sanitize: bluemonday.StrictPolicy()}
}

func parseProductID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, appErrors.BadRequestError("Invalid product ID format").WithError(err)
	}
	return objectID, nil
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {

	product := &models.Product{
		Title:       s.sanitize.Sanitize(req.Title),
		Image:       req.Image,
		Price:       req.Price,
		OldPrice:    req.OldPrice,
		Stock:       req.Stock,
		Discount:    req.Discount,
		Category:    s.sanitize.Sanitize(req.Category),
		Subcategory: s.sanitize.Sanitize(req.Subcategory),
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, appErrors.DatabaseError("Failed to add product").WithDetail(err.Error()).WithError(err)
	}

	s.invalidate(ctx, cache.ProductListKey)

	return product, nil
}

func (s *productService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {

	objectID, err := parseProductID(id)
	if err != nil {
		return nil, err
	}

	key := cache.Key(cache.ProductKeyPrefix, objectID.Hex())

	var cached models.Product
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	product, err := s.repo.GetProductByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}
		return nil, appErrors.DatabaseError("Failed to fetch product").WithDetail(err.Error()).WithError(err)
	}

	s.store(ctx, key, product)

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]*models.Product, error) {

	var cached []*models.Product
	if s.lookup(ctx, cache.ProductListKey, &cached) {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch products").WithDetail(err.Error()).WithError(err)
	}

	s.store(ctx, cache.ProductListKey, products)

	return products, nil
}

func (s *productService) UpdateProduct(ctx context.Context, req *models.UpdateProductRequest) (int64, error) {

	objectID, err := parseProductID(req.ID)
	if err != nil {
		return 0, err
	}

	fields := bson.M{}

	if req.Title != nil {
		fields["title"] = s.sanitize.Sanitize(*req.Title)
	}
	if req.Image != nil {
		fields["image"] = *req.Image
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.OldPrice != nil {
		fields["oldPrice"] = *req.OldPrice
	}
	if req.Stock != nil {
		fields["stock"] = *req.Stock
	}
	if req.Discount != nil {
		fields["discount"] = *req.Discount
	}
	if req.Category != nil {
		fields["category"] = s.sanitize.Sanitize(*req.Category)
	}
	if req.Subcategory != nil {
		fields["subcategory"] = s.sanitize.Sanitize(*req.Subcategory)
	}

	if len(fields) == 0 {
		return 0, appErrors.ValidationError("No fields to update")
	}

	modified, err := s.repo.UpdateProduct(ctx, objectID, fields)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return 0, appErrors.NotFoundError("Product not found for update").WithError(err)
		}
		return 0, appErrors.DatabaseError("Failed to update product").WithDetail(err.Error()).WithError(err)
	}

	s.invalidate(ctx, cache.Key(cache.ProductKeyPrefix, objectID.Hex()), cache.ProductListKey)

	return modified, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) (int64, error) {

	objectID, err := parseProductID(id)
	if err != nil {
		return 0, err
	}

	deleted, err := s.repo.DeleteProduct(ctx, objectID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return 0, appErrors.NotFoundError("Product not found").WithError(err)
		}
		return 0, appErrors.DatabaseError("Failed to delete product").WithDetail(err.Error()).WithError(err)
	}

	s.invalidate(ctx, cache.Key(cache.ProductKeyPrefix, objectID.Hex()), cache.ProductListKey)

	return deleted, nil
}

// Cache failures never fail a catalog request.

func (s *productService) lookup(ctx context.Context, key string, value any) bool {
	if s.cache == nil {
		return false
	}

	found, err := s.cache.Get(ctx, key, value)
	if err != nil {
		middleware.LoggerFromContext(ctx).Warn("Product cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}

	return found
}

func (s *productService) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Product cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *productService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Product cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}
