package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/session"
)

func newRequest(method, target string, body io.Reader, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)

	for key, value := range pathParams {
		req.SetPathValue(key, value)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return req.WithContext(context.WithValue(req.Context(), middleware.LoggerKey, logger))
}

// CreateTestRequestWithContext builds a request as it looks after
// middleware.Authenticate has accepted a session token for userID.
func CreateTestRequestWithContext(method, target string, body io.Reader, userID string, pathParams map[string]string) *http.Request {
	req := newRequest(method, target, body, pathParams)

	claims := &models.Claims{UserID: userID}

	ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)
	ctx = context.WithValue(ctx, middleware.TokenContextKey, "test-token")

	return req.WithContext(ctx)
}

func CreateTestRequestWithoutContext(method, target string, body io.Reader, pathParams map[string]string) *http.Request {
	return newRequest(method, target, body, pathParams)
}

// CreateTestRequestWithSession additionally attaches a resolved session.
func CreateTestRequestWithSession(method, target string, body io.Reader, sess *session.Session, pathParams map[string]string) *http.Request {
	req := CreateTestRequestWithContext(method, target, body, sess.UserID, pathParams)

	return req.WithContext(session.NewContext(req.Context(), sess))
}
