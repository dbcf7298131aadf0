package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// FallbackWarning is surfaced when sign-in failed and a local identity is used.
const FallbackWarning = "Authentication failed. Cart might not be saved."

// Authenticator performs the actual sign-in against the identity backend.
type Authenticator interface {
	SignInAnonymously(ctx context.Context) (string, error)
	SignInWithToken(ctx context.Context, token string) (string, error)
}

// Provider establishes one session identity. Init runs at most once; later
// calls return the outcome of the first.
type Provider struct {
	auth           Authenticator
	bootstrapToken string

	once  sync.Once
	ready chan struct{}

	mu         sync.RWMutex
	userID     string
	anonymous  bool
	persistent bool
	authReady  bool
	warning    string
}

// NewProvider builds a provider; an empty bootstrapToken means anonymous sign-in.
func NewProvider(auth Authenticator, bootstrapToken string) *Provider {
	return &Provider{
		auth:           auth,
		bootstrapToken: bootstrapToken,
		ready:          make(chan struct{}),
	}
}

func (p *Provider) Init(ctx context.Context) {
	p.once.Do(func() {
		defer close(p.ready)

		logger := slog.Default().With(slog.String("component", "identity"))

		var (
			userID string
			err    error
		)

		anonymous := p.bootstrapToken == ""
		if anonymous {
			userID, err = p.auth.SignInAnonymously(ctx)
		} else {
			userID, err = p.auth.SignInWithToken(ctx, p.bootstrapToken)
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		if err != nil || userID == "" {
			p.userID = uuid.NewString()
			p.anonymous = true
			p.persistent = false
			p.warning = FallbackWarning
			p.authReady = true

			attrs := []any{slog.String("userId", p.userID), slog.Bool("bootstrap", !anonymous)}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.Warn("Sign-in failed, using a local identity", attrs...)
			return
		}

		p.userID = userID
		p.anonymous = anonymous
		p.persistent = true
		p.authReady = true

		logger.Info("Identity established", slog.String("userId", userID), slog.Bool("anonymous", anonymous))
	})
}

// Ready is closed once Init has settled.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// UserID reports the identity; ok is false until Init has settled.
func (p *Provider) UserID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.userID, p.authReady
}

func (p *Provider) IsAuthReady() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.authReady
}

func (p *Provider) Anonymous() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.anonymous
}

// Persistent is false for a locally generated fallback identity.
func (p *Provider) Persistent() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.persistent
}

func (p *Provider) Warning() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.warning
}
