package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/pkg/sendgrid"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type NotificationService interface {
	SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.NotificationResponse, error)
}

type notificationService struct {
	repo         repository.NotificationRepository
	emailService sendgrid.EmailService
	htmlPolicy   *bluemonday.Policy
}

func NewNotificationService(repo repository.NotificationRepository, emailService sendgrid.EmailService) NotificationService {
	return &notificationService{repo: repo, emailService: emailService, htmlPolicy: bluemonday.UGCPolicy()}
}

// SendEmail logs the attempt as pending, sends it and records the outcome.
func (n *notificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.NotificationResponse, error) {

	logger := middleware.LoggerFromContext(ctx).With(slog.String("recipient", req.To))

	var metadataJSON json.RawMessage

	if req.Metadata != nil {
		metadataBytes, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, appErrors.BadRequestError("Invalid email metadata").WithError(err)
		}

		metadataJSON = metadataBytes
	}

	if req.HTMLContent != "" {
		req.HTMLContent = n.htmlPolicy.Sanitize(req.HTMLContent)
	}

	now := time.Now().UTC()

	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      models.NotificationTypeEmail,
		Recipient: req.To,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    models.StatusPending,
		Metadata:  metadataJSON,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if notification.Content == "" {
		notification.Content = req.HTMLContent
	}

	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		return nil, appErrors.DatabaseError("Failed to send email").WithDetail(err.Error()).WithError(err)
	}

	if err := n.emailService.Send(ctx, req); err != nil {

		notification.Status = models.StatusFailed
		notification.ErrorMessage = err.Error()

		if updateErr := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusFailed, notification.ErrorMessage); updateErr != nil {
			logger.Warn("Failed to record email failure", slog.String("error", updateErr.Error()))
		}

		if errors.Is(err, sendgrid.ErrMissingAPIKey) {
			return nil, appErrors.ConfigurationError("Failed to send email").WithDetail("Server configuration error: email API key is missing.").WithError(err)
		}

		return nil, appErrors.ThirdPartyError("Failed to send email").WithDetail(err.Error()).WithError(err)
	}

	notification.Status = models.StatusSent

	if err := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusSent, ""); err != nil {
		logger.Warn("Email sent but status update failed", slog.String("notificationId", notification.ID.String()), slog.String("error", err.Error()))
	}

	return &models.NotificationResponse{
		ID:        notification.ID,
		Type:      notification.Type,
		Status:    notification.Status,
		Recipient: notification.Recipient,
		CreatedAt: notification.CreatedAt,
	}, nil
}
