package models

type CurrencyResponse struct {
	Currency     string   `json:"currency"`
	Canonical    string   `json:"canonical"`
	Supported    []string `json:"supported"`
	Rate         *float64 `json:"rate"`
	LoadingRates bool     `json:"loadingRates"`
	RatesError   string   `json:"ratesError,omitempty"`
}

type SetCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

type RatesResponse struct {
	Rates map[string]float64 `json:"rates"`
}
