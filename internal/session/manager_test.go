package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cart"
	"github.com/aaravmahajanofficial/storefront/internal/currency"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/identity"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedRates map[string]float64

func (f fixedRates) Latest(context.Context, string) (map[string]float64, error) {
	return f, nil
}

func newTestManager(t *testing.T, cartRepo repository.CartRepository) (*Manager, *mocks.IdentityRepository, service.AuthService) {
	t.Helper()

	identities := mocks.NewIdentityRepository(t)
	auth := service.NewAuthService(identities, []byte("session-test-key"), time.Hour)

	rates := currency.NewRateProvider(fixedRates{"AUD": 1, "PKR": 185}, "PKR", "AUD")
	rates.Load(t.Context())

	manager := NewManager(auth, cartRepo, rates, nil, Config{
		IdleTimeout:     10 * time.Minute,
		JanitorInterval: time.Hour,
		DefaultCurrency: "PKR",
	})
	t.Cleanup(manager.Shutdown)

	return manager, identities, auth
}

func cartItem(id string) models.ProductRef {
	return models.ProductRef{ID: id, Title: "Item " + id, Image: "/" + id + ".png", Price: 100}
}

func waitSynced(t *testing.T, store *cart.Store) {
	t.Helper()
	require.Eventually(t, func() bool { return store.Snapshot().State == cart.StateSynced }, 2*time.Second, 5*time.Millisecond)
}

func TestManager_Open(t *testing.T) {
	ctx := t.Context()

	t.Run("Anonymous sign-in builds a synced session", func(t *testing.T) {
		// Arrange
		manager, identities, auth := newTestManager(t, repository.NewMemoryCartRepository())
		identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()

		// Act
		sess, err := manager.Open(ctx, "")

		// Assert
		require.NoError(t, err)
		require.NotEmpty(t, sess.UserID)
		waitSynced(t, sess.Cart)

		resp := sess.Response()
		assert.True(t, resp.IsAuthReady)
		assert.Empty(t, resp.Warning)
		assert.Equal(t, "PKR", sess.Currency.Currency())

		claims, err := auth.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.UserID, claims.UserID)
		assert.True(t, claims.Anonymous)
		assert.Equal(t, 1, manager.Len())
	})

	t.Run("Failed sign-in falls back to a local identity", func(t *testing.T) {
		// Arrange
		manager, identities, _ := newTestManager(t, repository.NewMemoryCartRepository())
		identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

		// Act
		sess, err := manager.Open(ctx, "")

		// Assert
		require.NoError(t, err)
		assert.NotEmpty(t, sess.UserID)
		assert.Equal(t, identity.FallbackWarning, sess.Response().Warning)
		assert.False(t, sess.Identity.Persistent())
	})

	t.Run("Bootstrap token returns the live session", func(t *testing.T) {
		// Arrange
		manager, identities, _ := newTestManager(t, repository.NewMemoryCartRepository())
		identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()
		identities.On("TouchIdentity", mock.Anything, mock.Anything).Return(nil).Once()

		first, err := manager.Open(ctx, "")
		require.NoError(t, err)

		// Act
		second, err := manager.Open(ctx, first.Token())

		// Assert
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, manager.Len())
	})

	t.Run("No cart storage leaves the store identity ready", func(t *testing.T) {
		// Arrange
		manager, identities, _ := newTestManager(t, nil)
		identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()

		// Act
		sess, err := manager.Open(ctx, "")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, cart.StateIdentityReady, sess.Cart.Snapshot().State)
	})
}

func TestManager_Resolve(t *testing.T) {
	ctx := t.Context()

	t.Run("Live session is returned", func(t *testing.T) {
		// Arrange
		manager, identities, auth := newTestManager(t, repository.NewMemoryCartRepository())
		identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()
		sess, err := manager.Open(ctx, "")
		require.NoError(t, err)
		claims, err := auth.VerifyToken(sess.Token())
		require.NoError(t, err)

		// Act
		resolved, err := manager.Resolve(ctx, claims, sess.Token())

		// Assert
		require.NoError(t, err)
		assert.Same(t, sess, resolved)
	})

	t.Run("Evicted session is re-attached with the same identity and cart", func(t *testing.T) {
		// Arrange
		repo := repository.NewMemoryCartRepository()
		manager, identities, auth := newTestManager(t, repo)
		identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()
		identities.On("TouchIdentity", mock.Anything, mock.Anything).Return(nil).Once()

		sess, err := manager.Open(ctx, "")
		require.NoError(t, err)
		waitSynced(t, sess.Cart)
		require.NoError(t, sess.Cart.AddToCart(ctx, cartItem("p1"), 3))
		require.Eventually(t, func() bool { return sess.Cart.TotalItems() == 3 }, 2*time.Second, 5*time.Millisecond)

		token := sess.Token()
		claims, err := auth.VerifyToken(token)
		require.NoError(t, err)
		require.True(t, manager.Close(sess.UserID))

		// Act
		resolved, err := manager.Resolve(ctx, claims, token)

		// Assert
		require.NoError(t, err)
		assert.NotSame(t, sess, resolved)
		assert.Equal(t, claims.UserID, resolved.UserID)
		assert.Equal(t, token, resolved.Token())
		require.Eventually(t, func() bool { return resolved.Cart.TotalItems() == 3 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("Identity change on re-attach is refused", func(t *testing.T) {
		// Arrange
		manager, identities, auth := newTestManager(t, repository.NewMemoryCartRepository())
		token, err := auth.IssueToken("user-9", false)
		require.NoError(t, err)
		claims, err := auth.VerifyToken(token)
		require.NoError(t, err)

		identities.On("TouchIdentity", mock.Anything, "user-9").Return(errors.New("mongo down")).Once()

		// Act
		resolved, err := manager.Resolve(ctx, claims, token)

		// Assert
		assert.Nil(t, resolved)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeUnauthorized, appErr.Code)
		assert.Zero(t, manager.Len())
	})

	t.Run("Concurrent re-attach opens a single session", func(t *testing.T) {
		// Arrange
		manager, identities, auth := newTestManager(t, repository.NewMemoryCartRepository())
		token, err := auth.IssueToken("user-10", false)
		require.NoError(t, err)
		claims, err := auth.VerifyToken(token)
		require.NoError(t, err)

		identities.On("TouchIdentity", mock.Anything, "user-10").Return(nil)

		// Act
		var wg sync.WaitGroup
		results := make([]*Session, 8)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = manager.Resolve(ctx, claims, token)
			}()
		}
		wg.Wait()

		// Assert
		assert.Equal(t, 1, manager.Len())
		live, ok := manager.Get("user-10")
		require.True(t, ok)
		for _, sess := range results {
			assert.Same(t, live, sess)
		}
	})
}

func TestManager_EvictIdle(t *testing.T) {
	// Arrange
	repo := repository.NewMemoryCartRepository()
	manager, identities, _ := newTestManager(t, repo)
	identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Twice()

	start := time.Now()
	manager.now = func() time.Time { return start }

	idle, err := manager.Open(t.Context(), "")
	require.NoError(t, err)
	active, err := manager.Open(t.Context(), "")
	require.NoError(t, err)
	waitSynced(t, idle.Cart)
	require.Equal(t, 1, repo.WatcherCount(idle.UserID))

	manager.now = func() time.Time { return start.Add(9 * time.Minute) }
	_, ok := manager.lookup(active.UserID)
	require.True(t, ok)

	manager.now = func() time.Time { return start.Add(11 * time.Minute) }

	// Act
	evicted := manager.EvictIdle()

	// Assert
	assert.Equal(t, 1, evicted)
	_, ok = manager.Get(idle.UserID)
	assert.False(t, ok)
	_, ok = manager.Get(active.UserID)
	assert.True(t, ok)
	assert.Eventually(t, func() bool { return repo.WatcherCount(idle.UserID) == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, idle.Cart.AddToCart(t.Context(), cartItem("p1"), 1), cart.ErrNotReady)
}

func TestManager_Shutdown(t *testing.T) {
	// Arrange
	manager, identities, _ := newTestManager(t, repository.NewMemoryCartRepository())
	identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()
	manager.Start(t.Context())

	_, err := manager.Open(t.Context(), "")
	require.NoError(t, err)

	// Act
	manager.Shutdown()
	manager.Shutdown()

	// Assert
	assert.Zero(t, manager.Len())
	assert.False(t, manager.Close("missing"))
}
