package handlers

import (
	"encoding/json"
	stdErrors "errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/session"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
)

type SessionHandler struct {
	manager *session.Manager
}

func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// OpenSession godoc
//
//	@Summary		Start a storefront session
//	@Description	Signs in with the bootstrap token when one is given, otherwise anonymously. A failed sign-in still opens a session under a local identity and reports a warning.
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			session	body		models.OpenSessionRequest	false	"Bootstrap token"
//	@Success		201		{object}	models.SessionResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		500		{object}	response.ErrorResponse
//	@Router			/api/session [post]
func (h *SessionHandler) OpenSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.OpenSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stdErrors.Is(err, io.EOF) {
			logger.Warn("Invalid session request", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		sess, err := h.manager.Open(r.Context(), req.BootstrapToken)
		if err != nil {
			logger.Error("Failed to open session", slog.String("error", err.Error()))
			response.Error(w, errors.InternalError("Failed to open session").WithError(err))
			return
		}

		resp := sess.Response()
		if resp.Warning != "" {
			logger.Warn("Session opened with fallback identity", slog.String("userId", resp.UserID))
		} else {
			logger.Info("Session opened", slog.String("userId", resp.UserID))
		}

		response.Success(w, http.StatusCreated, resp)
	}
}

// CloseSession godoc
//
//	@Summary	End the caller's session
//	@Tags		session
//	@Success	204
//	@Failure	401	{object}	response.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/session [delete]
func (h *SessionHandler) CloseSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		if h.manager.Close(claims.UserID) {
			middleware.LoggerFromContext(r.Context()).Info("Session closed")
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
