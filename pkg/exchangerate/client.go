package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrMissingAPIKey = errors.New("exchange rate api key is missing")

// APIError is an error reported by the upstream API. StatusCode is the HTTP
// status of the response; a 200 carrying result "error" keeps 200.
type APIError struct {
	StatusCode int
	Type       string
}

func (e *APIError) Error() string {
	return "exchange rate api error: " + e.Type
}

// Client talks to the v6 exchangerate-api "latest" endpoint.
type Client interface {
	Latest(ctx context.Context, base string) (map[string]float64, error)
}

type client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func NewClient(apiKey, baseURL string, timeout time.Duration) Client {
	return &client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Latest returns the conversion table anchored at base.
func (c *client) Latest(ctx context.Context, base string) (map[string]float64, error) {

	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(strings.ToUpper(base)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build exchange rate request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange rate request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Type: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("failed to decode exchange rate response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || payload.Result != "success" {
		reason := payload.ErrorType
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Type: reason}
	}

	return payload.ConversionRates, nil
}
