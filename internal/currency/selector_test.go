package currency_test

import (
	"errors"
	"testing"

	"github.com/aaravmahajanofficial/storefront/internal/currency"
	"github.com/aaravmahajanofficial/storefront/internal/repositories/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loadedProvider(t *testing.T) *currency.RateProvider {
	t.Helper()
	provider := currency.NewRateProvider(&stubFetcher{rates: map[string]float64{"PKR": 200}}, "PKR", "AUD")
	provider.Load(t.Context())
	return provider
}

func TestSelector(t *testing.T) {
	ctx := t.Context()

	t.Run("Defaults and restores stored choice", func(t *testing.T) {
		// Arrange
		store := mocks.NewPreferenceRepository(t)
		store.On("GetCurrency", mock.Anything, "user-1").Return("aud", true, nil).Once()
		selector := currency.NewSelector("user-1", loadedProvider(t), store, "PKR")
		assert.Equal(t, "PKR", selector.Currency())

		// Act
		selector.Load(ctx)

		// Assert
		assert.Equal(t, "AUD", selector.Currency())
		value, ok := selector.Price(1000)
		assert.True(t, ok)
		assert.InDelta(t, 5.0, value, 1e-9)
	})

	t.Run("Store failure keeps default", func(t *testing.T) {
		// Arrange
		store := mocks.NewPreferenceRepository(t)
		store.On("GetCurrency", mock.Anything, "user-1").Return("", false, errors.New("redis down")).Once()
		selector := currency.NewSelector("user-1", loadedProvider(t), store, "PKR")

		// Act
		selector.Load(ctx)

		// Assert
		assert.Equal(t, "PKR", selector.Currency())
	})

	t.Run("Set persists supported currency", func(t *testing.T) {
		// Arrange
		store := mocks.NewPreferenceRepository(t)
		store.On("SetCurrency", mock.Anything, "user-1", "AUD").Return(nil).Once()
		selector := currency.NewSelector("user-1", loadedProvider(t), store, "PKR")

		// Act
		err := selector.Set(ctx, " aud ")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "AUD", selector.Currency())
	})

	t.Run("Set rejects unsupported currency", func(t *testing.T) {
		// Arrange
		store := mocks.NewPreferenceRepository(t)
		selector := currency.NewSelector("user-1", loadedProvider(t), store, "PKR")

		// Act
		err := selector.Set(ctx, "EUR")

		// Assert
		require.ErrorIs(t, err, currency.ErrUnsupportedCurrency)
		assert.Equal(t, "PKR", selector.Currency())
		store.AssertNotCalled(t, "SetCurrency", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unsupported default falls back to canonical", func(t *testing.T) {
		selector := currency.NewSelector("", loadedProvider(t), nil, "EUR")

		selector.Load(ctx)

		assert.Equal(t, "PKR", selector.Currency())
	})
}
