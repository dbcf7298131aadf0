package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validator: utils.NewValidator()}
}

// Checkout godoc
//
//	@Summary		Place an order from the session's cart
//	@Description	Snapshots the cart with the selected currency and rate, stores the order, clears the cart and emails a confirmation.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			checkout	body		models.CheckoutRequest	true	"Shipping and payment"
//	@Success		200			{object}	models.OrderPlacedResponse
//	@Failure		400			{object}	response.ErrorResponse	"Empty cart or invalid shipping details"
//	@Failure		409			{object}	response.ErrorResponse	"Cart not ready"
//	@Failure		500			{object}	response.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/checkout [post]
func (h *CheckoutHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CheckoutRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid checkout input")
			return
		}

		order, err := h.checkoutService.Checkout(r.Context(), sess.Cart, sess.Currency, &req)
		if err != nil {
			logger.Warn("Checkout failed", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, models.OrderPlacedResponse{Message: orderPlacedMessage, InsertedID: order.ID.Hex()})
	}
}
