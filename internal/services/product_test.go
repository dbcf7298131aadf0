package service_test

import (
	"context"
	"errors"
	"testing"

	cacheMocks "github.com/aaravmahajanofficial/storefront/internal/cache/mocks"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func assertAppError(t *testing.T, err error, code string, message string) {
	t.Helper()

	var appErr *appErrors.AppError
	require.True(t, errors.As(err, &appErr), "expected an AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	assert.Contains(t, appErr.Message, message)
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()

	req := &models.CreateProductRequest{
		Title:       "Brass <script>alert(1)</script>Lamp",
		Price:       4500,
		Category:    "Home",
		Subcategory: "Lighting",
		Image:       "/images/lamp.png",
		Stock:       7,
	}

	t.Run("Success - sanitises text and invalidates the list", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)

		mockRepo.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
			return p.Title == "Brass Lamp" && p.Price == 4500 && p.Image == req.Image
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Product).ID = primitive.NewObjectID()
		}).Return(nil).Once()
		mockCache.On("Delete", mock.Anything, "products:all").Return(nil).Once()

		// Act
		product, err := productService.CreateProduct(ctx, req)

		// Assert
		require.NoError(t, err)
		assert.False(t, product.ID.IsZero())
		assert.Equal(t, "Brass Lamp", product.Title)
		assert.Equal(t, 7, product.Stock)
	})

	t.Run("Failure - Database Error", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		productService := service.NewProductService(mockRepo, nil)
		mockRepo.On("CreateProduct", mock.Anything, mock.AnythingOfType("*models.Product")).Return(errors.New("insert failed")).Once()

		// Act
		product, err := productService.CreateProduct(ctx, req)

		// Assert
		assert.Nil(t, product)
		assertAppError(t, err, appErrors.ErrCodeDatabaseError, "Failed to add product")
	})
}

func TestGetProductByID(t *testing.T) {
	ctx := context.Background()
	id := primitive.NewObjectID()
	key := "product:" + id.Hex()

	t.Run("Success - cache miss populates cache", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)
		expected := &models.Product{ID: id, Title: "Found Product", Price: 100}

		mockCache.On("Get", mock.Anything, key, mock.Anything).Return(false, nil).Once()
		mockRepo.On("GetProductByID", mock.Anything, id).Return(expected, nil).Once()
		mockCache.On("Set", mock.Anything, key, expected, mock.Anything).Return(nil).Once()

		// Act
		product, err := productService.GetProductByID(ctx, id.Hex())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, expected, product)
	})

	t.Run("Success - cache hit skips the repository", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)

		mockCache.On("Get", mock.Anything, key, mock.Anything).Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Product) = models.Product{ID: id, Title: "Cached"}
		}).Return(true, nil).Once()

		// Act
		product, err := productService.GetProductByID(ctx, id.Hex())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Cached", product.Title)
		mockRepo.AssertNotCalled(t, "GetProductByID", mock.Anything, mock.Anything)
	})

	t.Run("Success - cache failure falls through", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)
		expected := &models.Product{ID: id}

		mockCache.On("Get", mock.Anything, key, mock.Anything).Return(false, errors.New("redis down")).Once()
		mockRepo.On("GetProductByID", mock.Anything, id).Return(expected, nil).Once()
		mockCache.On("Set", mock.Anything, key, expected, mock.Anything).Return(errors.New("redis down")).Once()

		// Act
		product, err := productService.GetProductByID(ctx, id.Hex())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, expected, product)
	})

	t.Run("Failure - Invalid ID", func(t *testing.T) {
		// Arrange
		productService := service.NewProductService(mocks.NewProductRepository(t), nil)

		// Act
		product, err := productService.GetProductByID(ctx, "not-an-object-id")

		// Assert
		assert.Nil(t, product)
		assertAppError(t, err, appErrors.ErrCodeBadRequest, "Invalid product ID format")
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		productService := service.NewProductService(mockRepo, nil)
		mockRepo.On("GetProductByID", mock.Anything, id).Return(nil, repository.ErrProductNotFound).Once()

		// Act
		product, err := productService.GetProductByID(ctx, id.Hex())

		// Assert
		assert.Nil(t, product)
		assertAppError(t, err, appErrors.ErrCodeNotFound, "Product not found")
	})

	t.Run("Failure - Database Error", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		productService := service.NewProductService(mockRepo, nil)
		mockRepo.On("GetProductByID", mock.Anything, id).Return(nil, errors.New("socket closed")).Once()

		// Act
		product, err := productService.GetProductByID(ctx, id.Hex())

		// Assert
		assert.Nil(t, product)
		assertAppError(t, err, appErrors.ErrCodeDatabaseError, "Failed to fetch product")
	})
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - List Products", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)
		expected := []*models.Product{
			{ID: primitive.NewObjectID(), Title: "Product A"},
			{ID: primitive.NewObjectID(), Title: "Product B"},
		}

		mockCache.On("Get", mock.Anything, "products:all", mock.Anything).Return(false, nil).Once()
		mockRepo.On("ListProducts", mock.Anything).Return(expected, nil).Once()
		mockCache.On("Set", mock.Anything, "products:all", expected, mock.Anything).Return(nil).Once()

		// Act
		products, err := productService.ListProducts(ctx)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, expected, products)
	})

	t.Run("Failure - Database Error", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		productService := service.NewProductService(mockRepo, nil)
		mockRepo.On("ListProducts", mock.Anything).Return(nil, errors.New("cursor died")).Once()

		// Act
		products, err := productService.ListProducts(ctx)

		// Assert
		assert.Nil(t, products)
		assertAppError(t, err, appErrors.ErrCodeDatabaseError, "Failed to fetch products")

		var appErr *appErrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "cursor died", appErr.Detail)
	})
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	id := primitive.NewObjectID()
	title := "New <b>Name</b>"
	price := 60.0

	t.Run("Success - Update Product", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)

		mockRepo.On("UpdateProduct", mock.Anything, id, bson.M{"title": "New Name", "price": 60.0}).Return(int64(1), nil).Once()
		mockCache.On("Delete", mock.Anything, "product:"+id.Hex(), "products:all").Return(nil).Once()

		// Act
		modified, err := productService.UpdateProduct(ctx, &models.UpdateProductRequest{ID: id.Hex(), Title: &title, Price: &price})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(1), modified)
	})

	t.Run("Failure - No fields", func(t *testing.T) {
		// Arrange
		productService := service.NewProductService(mocks.NewProductRepository(t), nil)

		// Act
		_, err := productService.UpdateProduct(ctx, &models.UpdateProductRequest{ID: id.Hex()})

		// Assert
		assertAppError(t, err, appErrors.ErrCodeValidation, "No fields to update")
	})

	t.Run("Failure - Product Not Found", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		productService := service.NewProductService(mockRepo, nil)
		mockRepo.On("UpdateProduct", mock.Anything, id, mock.Anything).Return(int64(0), repository.ErrProductNotFound).Once()

		// Act
		_, err := productService.UpdateProduct(ctx, &models.UpdateProductRequest{ID: id.Hex(), Price: &price})

		// Assert
		assertAppError(t, err, appErrors.ErrCodeNotFound, "Product not found for update")
	})

	t.Run("Failure - Invalid ID", func(t *testing.T) {
		// Arrange
		productService := service.NewProductService(mocks.NewProductRepository(t), nil)

		// Act
		_, err := productService.UpdateProduct(ctx, &models.UpdateProductRequest{ID: "123", Price: &price})

		// Assert
		assertAppError(t, err, appErrors.ErrCodeBadRequest, "Invalid product ID format")
	})
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	id := primitive.NewObjectID()

	t.Run("Success - Delete Product", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		mockCache := cacheMocks.NewCache(t)
		productService := service.NewProductService(mockRepo, mockCache)
		mockRepo.On("DeleteProduct", mock.Anything, id).Return(int64(1), nil).Once()
		mockCache.On("Delete", mock.Anything, "product:"+id.Hex(), "products:all").Return(errors.New("redis down")).Once()

		// Act
		deleted, err := productService.DeleteProduct(ctx, id.Hex())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("Failure - Product Not Found", func(t *testing.T) {
		// Arrange
		mockRepo := mocks.NewProductRepository(t)
		productService := service.NewProductService(mockRepo, nil)
		mockRepo.On("DeleteProduct", mock.Anything, id).Return(int64(0), repository.ErrProductNotFound).Once()

		// Act
		_, err := productService.DeleteProduct(ctx, id.Hex())

		// Assert
		assertAppError(t, err, appErrors.ErrCodeNotFound, "Product not found")
	})
}
