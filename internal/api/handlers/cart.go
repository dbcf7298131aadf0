package handlers

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cart"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/session"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const defaultKeepAlive = 25 * time.Second

type CartHandler struct {
	validator *validator.Validate
	keepAlive time.Duration
}

// NewCartHandler serves the session's cart. keepAlive is the comment
// interval on the event stream.
func NewCartHandler(keepAlive time.Duration) *CartHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	return &CartHandler{validator: utils.NewValidator(), keepAlive: keepAlive}
}

func sessionFrom(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		middleware.LoggerFromContext(r.Context()).Warn("Cart requested without a session")
		response.Error(w, errors.UnauthorizedError("Authentication required"))
	}
	return sess, ok
}

// displayCode picks ?currency, falling back to the session's selection.
func displayCode(r *http.Request, sess *session.Session) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if code == "" {
		return sess.Currency.Currency(), nil
	}

	if !sess.Currency.Provider().IsSupported(code) {
		return "", errors.BadRequestError("Unsupported currency: " + code)
	}

	return code, nil
}

func cartResponse(snapshot cart.Snapshot, sess *session.Session, code string) models.CartResponse {

	items := snapshot.Items
	if items == nil {
		items = []models.CartLineItem{}
	}

	return models.CartResponse{
		State:           string(snapshot.State),
		Items:           items,
		TotalItems:      snapshot.TotalItems,
		Subtotal:        snapshot.Subtotal,
		CartLoading:     snapshot.Loading,
		CartError:       snapshot.Error,
		Currency:        code,
		DisplaySubtotal: sess.Currency.Provider().DisplayPrice(snapshot.Subtotal, code),
	}
}

// cartError maps a store error to a response; the store's own message is
// preferred because it is what the storefront shows.
func cartError(err error, snapshot cart.Snapshot) *errors.AppError {

	message := snapshot.Error

	switch {
	case stdErrors.Is(err, cart.ErrNotReady):
		if message == "" {
			message = "Cart is loading or user is not authenticated. Please wait."
		}
		return errors.ConflictError(message).WithError(err)
	case stdErrors.Is(err, cart.ErrMissingProductID):
		return errors.BadRequestError("Product ID is missing.").WithError(err)
	case stdErrors.Is(err, cart.ErrInvalidQuantity):
		return errors.BadRequestError("Quantity must be at least 1.").WithError(err)
	case stdErrors.Is(err, repository.ErrLineItemNotFound):
		return errors.NotFoundError("Item not found in cart.").WithError(err)
	}

	if message == "" {
		message = "Failed to update cart"
	}

	return errors.DatabaseError(message).WithDetail(err.Error()).WithError(err)
}

// mutate runs op and answers 202 with the snapshot taken right after it. The
// mirror catches up through the subscription, so items may lag the write.
func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, sess *session.Session, operation string, op func() error) {

	logger := middleware.LoggerFromContext(r.Context()).With(slog.String("operation", operation))

	if err := op(); err != nil {
		logger.Warn("Cart mutation failed", slog.String("error", err.Error()))
		response.Error(w, cartError(err, sess.Cart.Snapshot()))
		return
	}

	response.Success(w, http.StatusAccepted, cartResponse(sess.Cart.Snapshot(), sess, sess.Currency.Currency()))
}

// GetCart godoc
//
//	@Summary	Current cart mirror
//	@Tags		cart
//	@Produce	json
//	@Param		currency	query		string	false	"Display currency"
//	@Success	200			{object}	models.CartResponse
//	@Failure	400			{object}	response.ErrorResponse
//	@Failure	401			{object}	response.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/cart [get]
func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		code, err := displayCode(r, sess)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cartResponse(sess.Cart.Snapshot(), sess, code))
	}
}

// AddItem godoc
//
//	@Summary		Add a product to the cart
//	@Description	Adds the line item or increments its quantity. Either productId or id identifies the product.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			item	body		models.AddItemRequest	true	"Product and quantity"
//	@Success		202		{object}	models.CartResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Failure		500		{object}	response.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/cart/items [post]
func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var req models.AddItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		ref := models.ProductRef{
			ID:       req.ProductID,
			LegacyID: req.LegacyID,
			Title:    req.Title,
			Image:    req.Image,
			Price:    req.Price,
		}

		h.mutate(w, r, sess, "add", func() error {
			return sess.Cart.AddToCart(r.Context(), ref, req.Quantity)
		})
	}
}

// UpdateItem godoc
//
//	@Summary		Set a line item's quantity
//	@Description	A quantity of zero or less removes the line item.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			productId	path		string							true	"Product ID"
//	@Param			quantity	body		models.UpdateQuantityRequest	true	"New quantity"
//	@Success		202			{object}	models.CartResponse
//	@Failure		400			{object}	response.ErrorResponse
//	@Failure		404			{object}	response.ErrorResponse
//	@Failure		409			{object}	response.ErrorResponse
//	@Failure		500			{object}	response.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/cart/items/{productId} [put]
func (h *CartHandler) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var req models.UpdateQuantityRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		productID := r.PathValue("productId")

		h.mutate(w, r, sess, "update", func() error {
			return sess.Cart.UpdateQuantity(r.Context(), productID, req.Quantity)
		})
	}
}

// RemoveItem godoc
//
//	@Summary	Remove a line item
//	@Tags		cart
//	@Produce	json
//	@Param		productId	path		string	true	"Product ID"
//	@Success	202			{object}	models.CartResponse
//	@Failure	409			{object}	response.ErrorResponse
//	@Failure	500			{object}	response.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		productID := r.PathValue("productId")

		h.mutate(w, r, sess, "remove", func() error {
			return sess.Cart.RemoveFromCart(r.Context(), productID)
		})
	}
}

// ClearCart godoc
//
//	@Summary	Remove every line item
//	@Tags		cart
//	@Produce	json
//	@Success	202	{object}	models.CartResponse
//	@Failure	409	{object}	response.ErrorResponse
//	@Failure	500	{object}	response.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/cart [delete]
func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		h.mutate(w, r, sess, "clear", func() error {
			return sess.Cart.ClearCart(r.Context())
		})
	}
}

// Events godoc
//
//	@Summary		Stream cart snapshots
//	@Description	Server-sent events. Each "cart" event carries a CartResponse; the first one is the current state.
//	@Tags			cart
//	@Produce		text/event-stream
//	@Param			currency	query	string	false	"Display currency"
//	@Success		200
//	@Failure		400	{object}	response.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/cart/events [get]
func (h *CartHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		code, err := displayCode(r, sess)
		if err != nil {
			response.Error(w, err)
			return
		}

		logger := middleware.LoggerFromContext(r.Context())
		rc := http.NewResponseController(w)

		// The stream outlives the server's write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		updates, cancel := sess.Cart.Subscribe()
		defer cancel()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		logger.Debug("Cart stream opened")

		for {
			select {
			case <-r.Context().Done():
				logger.Debug("Cart stream closed by client")
				return

			case snapshot, open := <-updates:
				if !open {
					fmt.Fprint(w, "event: closed\ndata: {}\n\n")
					_ = rc.Flush()
					return
				}

				sess.Touch()

				data, err := json.Marshal(cartResponse(snapshot, sess, code))
				if err != nil {
					logger.Error("Failed to encode cart snapshot", slog.String("error", err.Error()))
					return
				}

				fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
				if err := rc.Flush(); err != nil {
					logger.Warn("Cart stream flush failed", slog.String("error", err.Error()))
					return
				}

			case <-ticker.C:
				sess.Touch()
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}
