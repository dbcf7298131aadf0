package handlers

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
)

type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login godoc
//
//	@Summary	Unlock the admin panel
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Param		login	body		models.AdminLoginRequest	true	"Password"
//	@Success	200		{object}	models.AdminLoginResponse
//	@Failure	401		{object}	models.AdminLoginResponse
//	@Failure	429		{object}	models.AdminLoginResponse
//	@Failure	500		{object}	response.ErrorResponse
//	@Router		/api/admin-login [post]
func (h *AdminHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		key := clientKey(r)
		logger := middleware.LoggerFromContext(r.Context()).With(slog.String("client", key))

		// An empty or missing password is just a wrong password.
		var req models.AdminLoginRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			logger.Warn("Invalid admin login body", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		resp, err := h.adminService.Login(r.Context(), key, &req)
		if err != nil {
			appErr, ok := errors.IsAppError(err)
			if resp == nil || !ok {
				logger.Error("Admin login failed", slog.String("error", err.Error()))
				response.Error(w, err)
				return
			}

			if resp.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
			}

			response.Success(w, appErr.StatusCode, resp)
			return
		}

		logger.Info("Admin logged in")
		response.Success(w, http.StatusOK, resp)
	}
}
