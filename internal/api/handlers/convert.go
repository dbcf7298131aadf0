package handlers

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/aaravmahajanofficial/storefront/pkg/exchangerate"
)

type ConvertHandler struct {
	client      exchangerate.Client
	defaultBase string
}

// NewConvertHandler proxies the exchange rate API; defaultBase is used when
// the request names none.
func NewConvertHandler(client exchangerate.Client, defaultBase string) *ConvertHandler {
	return &ConvertHandler{client: client, defaultBase: strings.ToUpper(defaultBase)}
}

// NewConvertHandlerFromConfig defaults the base to the display currency.
func NewConvertHandlerFromConfig(client exchangerate.Client, currency config.Currency) *ConvertHandler {
	return NewConvertHandler(client, currency.Display)
}

// GetRates godoc
//
//	@Summary	Latest conversion table
//	@Tags		currency
//	@Produce	json
//	@Param		base	query		string	false	"Base currency (default AUD)"
//	@Success	200		{object}	models.RatesResponse
//	@Failure	500		{object}	response.ErrorResponse
//	@Router		/api/convert [get]
func (h *ConvertHandler) GetRates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		base := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("base")))
		if base == "" {
			base = h.defaultBase
		}

		logger := middleware.LoggerFromContext(r.Context()).With(slog.String("base", base))

		rates, err := h.client.Latest(r.Context(), base)
		if err != nil {
			logger.Error("Failed to fetch exchange rates", slog.String("error", err.Error()))
			response.Error(w, ratesError(err))
			return
		}

		response.Success(w, http.StatusOK, models.RatesResponse{Rates: rates})
	}
}

func ratesError(err error) *errors.AppError {

	if stdErrors.Is(err, exchangerate.ErrMissingAPIKey) {
		return errors.ConfigurationError("Server configuration error: Exchange Rate API key is missing.").WithError(err)
	}

	var apiErr *exchangerate.APIError
	if stdErrors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusBadRequest {
			message := fmt.Sprintf("Failed to fetch exchange rates from external API. Status: %d. Details: %s", apiErr.StatusCode, apiErr.Type)
			return errors.NewAppError(errors.ErrCodeThirdPartyError, message, apiErr.StatusCode).WithError(err)
		}

		return errors.ThirdPartyError("ExchangeRate-API reported error: " + apiErr.Type).WithError(err)
	}

	return errors.InternalError("Internal server error while fetching exchange rates").WithDetail(err.Error()).WithError(err)
}
