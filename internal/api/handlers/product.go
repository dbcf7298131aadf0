package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/currency"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	productService service.ProductService
	rates          *currency.RateProvider
	validator      *validator.Validate
}

// NewProductHandler builds the catalog handler; rates may be nil, in which
// case ?currency is ignored.
func NewProductHandler(productService service.ProductService, rates *currency.RateProvider) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		rates:          rates,
		validator:      utils.NewValidator(),
	}
}

// displayCurrency reads ?currency. ok is false when the code is not supported.
func (h *ProductHandler) displayCurrency(r *http.Request) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if code == "" || h.rates == nil {
		return "", true
	}

	return code, h.rates.IsSupported(code)
}

func (h *ProductHandler) view(product *models.Product, code string) models.ProductView {
	return models.ProductView{
		Product:         *product,
		DisplayPrice:    h.rates.DisplayPrice(product.Price, code),
		DisplayCurrency: code,
	}
}

// CreateProduct godoc
//
//	@Summary	Add a product to the catalog
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		product	body		models.CreateProductRequest	true	"Product"
//	@Success	200		{object}	models.InsertedResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Failure	500		{object}	response.ErrorResponse
//	@Router		/api/products [post]
func (h *ProductHandler) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid product input")
			return
		}

		product, err := h.productService.CreateProduct(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to add product", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Product created", slog.String("productId", product.ID.Hex()))
		response.Success(w, http.StatusOK, models.InsertedResponse{InsertedID: product.ID.Hex()})
	}
}

// GetProduct godoc
//
//	@Summary	Fetch one product
//	@Tags		products
//	@Produce	json
//	@Param		id			path		string	true	"Product ObjectID"
//	@Param		currency	query		string	false	"Display currency"
//	@Success	200			{object}	models.ProductView
//	@Failure	400			{object}	response.ErrorResponse
//	@Failure	404			{object}	response.ErrorResponse
//	@Router		/api/products/{id} [get]
func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id := r.PathValue("id")
		logger := middleware.LoggerFromContext(r.Context()).With(slog.String("productId", id))

		code, ok := h.displayCurrency(r)
		if !ok {
			response.Error(w, errors.BadRequestError("Unsupported currency: "+code))
			return
		}

		product, err := h.productService.GetProductByID(r.Context(), id)
		if err != nil {
			logger.Warn("Failed to fetch product", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		if code == "" {
			response.Success(w, http.StatusOK, product)
			return
		}

		response.Success(w, http.StatusOK, h.view(product, code))
	}
}

// ListProducts godoc
//
//	@Summary	List the whole catalog
//	@Tags		products
//	@Produce	json
//	@Param		currency	query		string	false	"Display currency"
//	@Success	200			{array}		models.ProductView
//	@Failure	500			{object}	response.ErrorResponse
//	@Router		/api/products [get]
func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		code, ok := h.displayCurrency(r)
		if !ok {
			response.Error(w, errors.BadRequestError("Unsupported currency: "+code))
			return
		}

		products, err := h.productService.ListProducts(r.Context())
		if err != nil {
			logger.Error("Failed to fetch products", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		if code == "" {
			if products == nil {
				products = []*models.Product{}
			}
			response.Success(w, http.StatusOK, products)
			return
		}

		views := make([]models.ProductView, 0, len(products))
		for _, product := range products {
			views = append(views, h.view(product, code))
		}

		response.Success(w, http.StatusOK, views)
	}
}

// UpdateProduct godoc
//
//	@Summary	Overwrite selected product fields
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		product	body		models.UpdateProductRequest	true	"Fields to set"
//	@Success	200		{object}	models.ModifiedResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Failure	404		{object}	response.ErrorResponse
//	@Failure	500		{object}	response.ErrorResponse
//	@Router		/api/products/update [put]
func (h *ProductHandler) UpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.UpdateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid product update input")
			return
		}

		logger = logger.With(slog.String("productId", req.ID))

		modified, err := h.productService.UpdateProduct(r.Context(), &req)
		if err != nil {
			logger.Warn("Failed to update product", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Product updated", slog.Int64("modifiedCount", modified))
		response.Success(w, http.StatusOK, models.ModifiedResponse{ModifiedCount: modified})
	}
}

// DeleteProduct godoc
//
//	@Summary	Remove a product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		product	body		models.DeleteProductRequest	true	"Product to delete"
//	@Success	200		{object}	models.DeletedResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Failure	404		{object}	response.ErrorResponse
//	@Failure	500		{object}	response.ErrorResponse
//	@Router		/api/products/delete [delete]
func (h *ProductHandler) DeleteProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.DeleteProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid product delete input")
			return
		}

		logger = logger.With(slog.String("productId", req.ID))

		deleted, err := h.productService.DeleteProduct(r.Context(), req.ID)
		if err != nil {
			logger.Warn("Failed to delete product", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Product deleted")
		response.Success(w, http.StatusOK, models.DeletedResponse{DeletedCount: deleted})
	}
}
