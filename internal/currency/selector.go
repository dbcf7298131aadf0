package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
)

// Selector holds the display currency chosen by one session. The choice is
// persisted through the preference store so it survives a new session.
type Selector struct {
	userID   string
	provider *RateProvider
	store    repository.PreferenceRepository
	fallback string

	mu       sync.RWMutex
	selected string
}

func NewSelector(userID string, provider *RateProvider, store repository.PreferenceRepository, defaultCurrency string) *Selector {

	fallback := strings.ToUpper(defaultCurrency)
	if !provider.IsSupported(fallback) {
		fallback = provider.Canonical()
	}

	return &Selector{
		userID:   userID,
		provider: provider,
		store:    store,
		fallback: fallback,
		selected: fallback,
	}
}

// Load restores a stored choice. An unreadable or unsupported stored value
// leaves the default in place.
func (s *Selector) Load(ctx context.Context) {

	if s.store == nil || s.userID == "" {
		return
	}

	code, found, err := s.store.GetCurrency(ctx, s.userID)
	if err != nil {
		slog.Default().Warn("Failed to load currency preference",
			slog.String("userId", s.userID), slog.String("error", err.Error()))
		return
	}

	if !found || !s.provider.IsSupported(code) {
		return
	}

	s.mu.Lock()
	s.selected = strings.ToUpper(code)
	s.mu.Unlock()
}

func (s *Selector) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selected
}

// Set changes the display currency. Unsupported codes are rejected with
// ErrUnsupportedCurrency and leave the current choice untouched.
func (s *Selector) Set(ctx context.Context, code string) error {

	code = strings.ToUpper(strings.TrimSpace(code))

	if !s.provider.IsSupported(code) {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}

	s.mu.Lock()
	s.selected = code
	s.mu.Unlock()

	if s.store == nil || s.userID == "" {
		return nil
	}

	if err := s.store.SetCurrency(ctx, s.userID, code); err != nil {
		return fmt.Errorf("failed to persist currency preference: %w", err)
	}

	return nil
}

// Price projects a canonical price into the selected currency.
func (s *Selector) Price(price float64) (float64, bool) {
	return s.provider.Project(price, s.Currency())
}

func (s *Selector) Provider() *RateProvider { return s.provider }
