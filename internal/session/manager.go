package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cart"
	"github.com/aaravmahajanofficial/storefront/internal/currency"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/identity"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"golang.org/x/sync/singleflight"
)

// Session is the server side of one storefront instance: one identity, one
// cart store and one currency selector.
type Session struct {
	UserID   string
	Identity *identity.Provider
	Cart     *cart.Store
	Currency *currency.Selector

	lastSeen atomic.Int64
	token    atomic.Pointer[string]
}

// Token is the most recently issued session token.
func (s *Session) Token() string {
	if t := s.token.Load(); t != nil {
		return *t
	}
	return ""
}

func (s *Session) setToken(token string) {
	s.token.Store(&token)
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen is the time of the last request that used the session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Response renders the session for POST /api/session.
func (s *Session) Response() *models.SessionResponse {
	return &models.SessionResponse{
		Token:       s.Token(),
		UserID:      s.UserID,
		IsAuthReady: s.Identity.IsAuthReady(),
		Warning:     s.Identity.Warning(),
	}
}

type Config struct {
	IdleTimeout     time.Duration
	JanitorInterval time.Duration
	DefaultCurrency string
}

// Manager owns every live session. Subscriptions are bound to the manager's
// lifetime, not to the request that opened them.
type Manager struct {
	auth     service.AuthService
	cartRepo repository.CartRepository
	rates    *currency.RateProvider
	prefs    repository.PreferenceRepository
	cfg      Config
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	reattach singleflight.Group

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager builds the manager. cartRepo and prefs may be nil: carts then
// stay without storage and currency choices are not persisted.
func NewManager(auth service.AuthService, cartRepo repository.CartRepository, rates *currency.RateProvider, prefs repository.PreferenceRepository, cfg Config) *Manager {

	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		auth:     auth,
		cartRepo: cartRepo,
		rates:    rates,
		prefs:    prefs,
		cfg:      cfg,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// Open runs a fresh identity provider and builds the session around the
// identity it settles on. An identity that already has a live session gets
// that session back with a new token.
func (m *Manager) Open(ctx context.Context, bootstrapToken string) (*Session, error) {

	provider := identity.NewProvider(m.auth, bootstrapToken)
	provider.Init(ctx)

	userID, _ := provider.UserID()

	token, err := m.auth.IssueToken(userID, provider.Anonymous())
	if err != nil {
		return nil, err
	}

	if existing, ok := m.lookup(userID); ok {
		existing.setToken(token)
		return existing, nil
	}

	sess := &Session{
		UserID:   userID,
		Identity: provider,
		Cart:     cart.NewStore(m.cartRepo),
		Currency: currency.NewSelector(userID, m.rates, m.prefs, m.cfg.DefaultCurrency),
	}
	sess.setToken(token)
	sess.touch(m.now())

	// A failed subscription is recorded in the store's error field and does
	// not fail the session.
	if err := sess.Cart.SetIdentity(m.ctx, userID); err != nil {
		slog.Default().Warn("Cart subscription unavailable", slog.String("userId", userID), slog.String("error", err.Error()))
	}

	sess.Currency.Load(ctx)

	m.mu.Lock()
	if existing, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		sess.Cart.Close()
		existing.setToken(token)
		return existing, nil
	}
	m.sessions[userID] = sess
	m.mu.Unlock()

	metrics.SessionOpened()

	return sess, nil
}

// Resolve finds the session for verified claims, re-attaching an evicted one
// by exchanging its token.
func (m *Manager) Resolve(ctx context.Context, claims *models.Claims, token string) (*Session, error) {

	if sess, ok := m.lookup(claims.UserID); ok {
		return sess, nil
	}

	v, err, _ := m.reattach.Do(claims.UserID, func() (any, error) {
		sess, err := m.Open(ctx, token)
		if err != nil {
			return nil, err
		}

		if sess.UserID != claims.UserID {
			m.Close(sess.UserID)
			return nil, appErrors.UnauthorizedError("Session could not be restored")
		}

		sess.setToken(token)

		return sess, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil
}

// Get returns a live session without touching it.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	return sess, ok
}

func (m *Manager) lookup(userID string) (*Session, bool) {
	sess, ok := m.Get(userID)
	if ok {
		sess.touch(m.now())
	}
	return sess, ok
}

// Close removes the session and tears its cart subscription down.
func (m *Manager) Close(userID string) bool {

	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	sess.Cart.Close()
	metrics.SessionClosed()

	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// Start runs the janitor until ctx is done or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.janitor(ctx)
}

func (m *Manager) janitor(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// EvictIdle closes every session idle longer than the idle timeout and
// reports how many were closed.
func (m *Manager) EvictIdle() int {

	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	var idle []string

	m.mu.RLock()
	for userID, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) {
			idle = append(idle, userID)
		}
	}
	m.mu.RUnlock()

	evicted := 0
	for _, userID := range idle {
		if m.Close(userID) {
			evicted++
		}
	}

	if evicted > 0 {
		slog.Default().Info("Evicted idle sessions", slog.String("component", "session_janitor"), slog.Int("count", evicted))
	}

	return evicted
}

// Shutdown stops the janitor and closes every session.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()

		m.mu.RLock()
		userIDs := make([]string, 0, len(m.sessions))
		for userID := range m.sessions {
			userIDs = append(userIDs, userID)
		}
		m.mu.RUnlock()

		for _, userID := range userIDs {
			m.Close(userID)
		}

		m.cancel()
	})
}
