package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
)

const orderPlacedMessage = "Order placed successfully"

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder godoc
//
//	@Summary		Place an order snapshot
//	@Description	Stores the submitted order as pending. A verified session token, when present, overrides userId.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			order	body		models.CreateOrderRequest	true	"Order snapshot"
//	@Success		200		{object}	models.OrderPlacedResponse
//	@Failure		400		{object}	response.ErrorResponse	"Missing required order data"
//	@Failure		500		{object}	response.ErrorResponse
//	@Router			/api/orders [post]
func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateOrderRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			logger.Warn("Invalid order input", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			req.UserID = claims.UserID
		}

		order, err := h.orderService.CreateOrder(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to place order", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Order placed", slog.String("orderId", order.ID.Hex()), slog.String("userId", order.UserID))
		response.Success(w, http.StatusOK, models.OrderPlacedResponse{Message: orderPlacedMessage, InsertedID: order.ID.Hex()})
	}
}

// ListOrders godoc
//
//	@Summary	List the caller's orders
//	@Tags		orders
//	@Produce	json
//	@Success	200	{array}		models.Order
//	@Failure	401	{object}	response.ErrorResponse
//	@Failure	500	{object}	response.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/orders [get]
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized order listing attempt")
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		logger = logger.With(slog.String("userId", claims.UserID))

		orders, err := h.orderService.ListOrders(r.Context(), claims.UserID)
		if err != nil {
			logger.Error("Failed to list orders", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		if orders == nil {
			orders = []*models.Order{}
		}

		response.Success(w, http.StatusOK, orders)
	}
}
