package handlers_test

import (
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cart"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	repoMocks "github.com/aaravmahajanofficial/storefront/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/session"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testJWTKey = []byte("handlers-test-key")

type sessionFixture struct {
	manager    *session.Manager
	auth       service.AuthService
	identities *repoMocks.IdentityRepository
	carts      *repository.MemoryCartRepository
	prefs      *repoMocks.PreferenceRepository
}

// newSessionFixture builds a manager over an in-memory cart store with
// AUD 1 = PKR 185.
func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	identities := repoMocks.NewIdentityRepository(t)
	prefs := repoMocks.NewPreferenceRepository(t)
	carts := repository.NewMemoryCartRepository()
	auth := service.NewAuthService(identities, testJWTKey, time.Hour)

	rates := loadedRates(t, fixedRates{rates: map[string]float64{"AUD": 1, "PKR": 185}})

	manager := session.NewManager(auth, carts, rates, prefs, session.Config{
		IdleTimeout:     time.Hour,
		JanitorInterval: time.Hour,
		DefaultCurrency: "PKR",
	})
	t.Cleanup(manager.Shutdown)

	return &sessionFixture{manager: manager, auth: auth, identities: identities, carts: carts, prefs: prefs}
}

// open starts an anonymous session and waits for its cart to sync.
func (f *sessionFixture) open(t *testing.T) *session.Session {
	t.Helper()

	f.identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()
	f.prefs.On("GetCurrency", mock.Anything, mock.Anything).Return("", false, nil).Once()

	sess, err := f.manager.Open(t.Context(), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sess.Cart.Snapshot().State == cart.StateSynced
	}, 2*time.Second, 5*time.Millisecond)

	return sess
}

func waitForItems(t *testing.T, sess *session.Session, total int) {
	t.Helper()

	require.Eventually(t, func() bool { return sess.Cart.TotalItems() == total }, 2*time.Second, 5*time.Millisecond)
}
