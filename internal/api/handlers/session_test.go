package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront/internal/identity"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOpenSession(t *testing.T) {

	t.Run("Success - anonymous without a body", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sessionHandler := handlers.NewSessionHandler(fixture.manager)
		fixture.identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(nil).Once()
		fixture.prefs.On("GetCurrency", mock.Anything, mock.Anything).Return("", false, nil).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/session", http.NoBody, nil)
		rr := httptest.NewRecorder()

		// Act
		sessionHandler.OpenSession().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp models.SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.IsAuthReady)
		assert.Empty(t, resp.Warning)

		claims, err := fixture.auth.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.UserID, claims.UserID)
	})

	t.Run("Success - bootstrap token signs in", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sessionHandler := handlers.NewSessionHandler(fixture.manager)
		token, err := fixture.auth.IssueToken("returning-user", false)
		require.NoError(t, err)

		fixture.identities.On("TouchIdentity", mock.Anything, "returning-user").Return(nil).Once()
		fixture.prefs.On("GetCurrency", mock.Anything, "returning-user").Return("AUD", true, nil).Once()

		body, _ := json.Marshal(models.OpenSessionRequest{BootstrapToken: token})
		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/session", bytes.NewReader(body), nil)
		rr := httptest.NewRecorder()

		// Act
		sessionHandler.OpenSession().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp models.SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "returning-user", resp.UserID)

		sess, ok := fixture.manager.Get("returning-user")
		require.True(t, ok)
		assert.Equal(t, "AUD", sess.Currency.Currency())
	})

	t.Run("Failed sign-in reports a warning", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sessionHandler := handlers.NewSessionHandler(fixture.manager)
		fixture.identities.On("CreateIdentity", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()
		fixture.prefs.On("GetCurrency", mock.Anything, mock.Anything).Return("", false, nil).Once()

		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/session", http.NoBody, nil)
		rr := httptest.NewRecorder()

		// Act
		sessionHandler.OpenSession().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp models.SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, identity.FallbackWarning, resp.Warning)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("Failure - Bad JSON", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sessionHandler := handlers.NewSessionHandler(fixture.manager)
		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/api/session", bytes.NewReader([]byte(`{"bootstrapToken":`)), nil)
		rr := httptest.NewRecorder()

		// Act
		sessionHandler.OpenSession().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Zero(t, fixture.manager.Len())
	})
}

func TestCloseSession(t *testing.T) {

	t.Run("Success", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sessionHandler := handlers.NewSessionHandler(fixture.manager)
		sess := fixture.open(t)

		req := testutils.CreateTestRequestWithContext(http.MethodDelete, "/api/session", nil, sess.UserID, nil)
		rr := httptest.NewRecorder()

		// Act
		sessionHandler.CloseSession().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Zero(t, fixture.manager.Len())
		assert.Eventually(t, func() bool { return fixture.carts.WatcherCount(sess.UserID) == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("Failure - Unauthorized", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sessionHandler := handlers.NewSessionHandler(fixture.manager)
		req := testutils.CreateTestRequestWithoutContext(http.MethodDelete, "/api/session", nil, nil)
		rr := httptest.NewRecorder()

		// Act
		sessionHandler.CloseSession().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
