package handlers

import (
	stdErrors "errors"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/currency"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type CurrencyHandler struct {
	validator *validator.Validate
}

func NewCurrencyHandler() *CurrencyHandler {
	return &CurrencyHandler{validator: utils.NewValidator()}
}

func currencyResponse(sel *currency.Selector) models.CurrencyResponse {

	provider := sel.Provider()
	rates := provider.Snapshot()

	resp := models.CurrencyResponse{
		Currency:     sel.Currency(),
		Canonical:    provider.Canonical(),
		Supported:    provider.Supported(),
		Rate:         rates.Rate,
		LoadingRates: rates.Loading,
	}

	if rates.Err != nil {
		resp.RatesError = "Could not load exchange rates. Prices shown may not be converted."
	}

	return resp
}

// GetCurrency godoc
//
//	@Summary	Selected display currency and rate state
//	@Tags		currency
//	@Produce	json
//	@Success	200	{object}	models.CurrencyResponse
//	@Failure	401	{object}	response.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/currency [get]
func (h *CurrencyHandler) GetCurrency() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		response.Success(w, http.StatusOK, currencyResponse(sess.Currency))
	}
}

// SetCurrency godoc
//
//	@Summary		Change the display currency
//	@Description	The choice is remembered for the identity. A failure to remember it does not fail the request.
//	@Tags			currency
//	@Accept			json
//	@Produce		json
//	@Param			currency	body		models.SetCurrencyRequest	true	"Currency code"
//	@Success		200			{object}	models.CurrencyResponse
//	@Failure		400			{object}	response.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/currency [put]
func (h *CurrencyHandler) SetCurrency() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sess, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var req models.SetCurrencyRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		logger := middleware.LoggerFromContext(r.Context()).With(slog.String("currency", req.Currency))

		if err := sess.Currency.Set(r.Context(), req.Currency); err != nil {
			if stdErrors.Is(err, currency.ErrUnsupportedCurrency) {
				response.Error(w, errors.BadRequestError("Unsupported currency: "+req.Currency).WithError(err))
				return
			}
			logger.Warn("Currency changed but not persisted", slog.String("error", err.Error()))
		}

		sess.Touch()

		response.Success(w, http.StatusOK, currencyResponse(sess.Currency))
	}
}
