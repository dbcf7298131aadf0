package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aaravmahajanofficial/storefront/internal/metrics"
)

// RatesFetcher returns a conversion table anchored at base.
type RatesFetcher interface {
	Latest(ctx context.Context, base string) (map[string]float64, error)
}

// Rates is a point-in-time view of the provider.
type Rates struct {
	Rate    *float64
	Loading bool
	Err     error
}

// RateProvider fetches one exchange rate per process start. The table is
// anchored at the display currency and the canonical entry is kept, so the
// rate is canonical units per display unit. A failed fetch is not retried.
type RateProvider struct {
	fetcher   RatesFetcher
	canonical string
	display   string

	once sync.Once
	done chan struct{}

	mu      sync.RWMutex
	rate    *float64
	loading bool
	err     error
}

func NewRateProvider(fetcher RatesFetcher, canonical, display string) *RateProvider {
	return &RateProvider{
		fetcher:   fetcher,
		canonical: strings.ToUpper(canonical),
		display:   strings.ToUpper(display),
		done:      make(chan struct{}),
	}
}

// Start issues the single fetch in the background. Calling it again is a no-op.
func (p *RateProvider) Start(ctx context.Context) {
	p.once.Do(func() {
		p.mu.Lock()
		p.loading = true
		p.mu.Unlock()

		go p.load(ctx)
	})
}

// Load issues the fetch and blocks until it settles.
func (p *RateProvider) Load(ctx context.Context) Rates {
	p.Start(ctx)

	select {
	case <-p.done:
	case <-ctx.Done():
	}

	return p.Snapshot()
}

func (p *RateProvider) load(ctx context.Context) {
	defer close(p.done)

	logger := slog.Default().With(slog.String("component", "rate_provider"), slog.String("base", p.display))

	rates, err := p.fetcher.Latest(ctx, p.display)
	if err == nil {
		if value, ok := rates[p.canonical]; ok {
			p.set(&value, nil)
		} else {
			err = fmt.Errorf("rate for %s missing from %s table", p.canonical, p.display)
		}
	}

	metrics.RecordRateFetch(err)

	if err != nil {
		logger.Error("Failed to load exchange rate", slog.String("error", err.Error()))
		p.set(nil, err)
		return
	}

	logger.Info("Exchange rate loaded", slog.String("canonical", p.canonical))
}

func (p *RateProvider) set(rate *float64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rate = rate
	p.err = err
	p.loading = false
}

func (p *RateProvider) Snapshot() Rates {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var rate *float64
	if p.rate != nil {
		value := *p.rate
		rate = &value
	}

	return Rates{Rate: rate, Loading: p.loading, Err: p.err}
}

func (p *RateProvider) Canonical() string { return p.canonical }

func (p *RateProvider) Display() string { return p.display }

// Supported lists the currencies a price can be shown in.
func (p *RateProvider) Supported() []string {
	if p.canonical == p.display {
		return []string{p.canonical}
	}

	return []string{p.canonical, p.display}
}

func (p *RateProvider) IsSupported(code string) bool {
	code = strings.ToUpper(code)
	return code == p.canonical || code == p.display
}

// Project converts a canonical price with the current rate.
func (p *RateProvider) Project(price float64, target string) (float64, bool) {
	rates := p.Snapshot()
	return Project(price, strings.ToUpper(target), p.canonical, rates.Rate, rates.Loading)
}

// DisplayPrice renders a canonical price in target, "N/A" when it cannot be converted.
func (p *RateProvider) DisplayPrice(price float64, target string) string {
	return Format(p.Project(price, target))
}
