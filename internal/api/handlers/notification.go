package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	validator           *validator.Validate
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		validator:           utils.NewValidator(),
	}
}

type SendEmailResponse struct {
	Success bool `json:"success"`
}

// SendEmail godoc
//
//	@Summary	Send a transactional email
//	@Tags		notifications
//	@Accept		json
//	@Produce	json
//	@Param		email	body		models.EmailNotificationRequest	true	"Recipient and content"
//	@Success	200		{object}	handlers.SendEmailResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Failure	500		{object}	response.ErrorResponse	"Failed to send email"
//	@Router		/api/send-email [post]
func (h *NotificationHandler) SendEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.EmailNotificationRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid email input")
			return
		}

		logger = logger.With(slog.String("recipient", req.To))

		notification, err := h.notificationService.SendEmail(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to send email", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Email sent", slog.String("notificationId", notification.ID.String()))
		response.Success(w, http.StatusOK, SendEmailResponse{Success: true})
	}
}
