package service

import (
	"context"
	"log/slog"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

const (
	incorrectPasswordMessage = "Incorrect password"
	tooManyAttemptsMessage   = "Too many login attempts. Please try again later."
)

type AdminService interface {
	// Login returns a response body for every outcome the caller must render
	// (success, wrong password, rate limited) and an error carrying its status.
	Login(ctx context.Context, clientKey string, req *models.AdminLoginRequest) (*models.AdminLoginResponse, error)
}

type adminService struct {
	limiter      repository.RateLimitRepository
	passwordHash []byte
}

// NewAdminService hashes the configured password once. An empty password
// leaves the panel locked with a configuration error.
func NewAdminService(limiter repository.RateLimitRepository, password string) (AdminService, error) {

	service := &adminService{limiter: limiter}

	if password == "" {
		return service, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	service.passwordHash = hash

	return service, nil
}

func (s *adminService) Login(ctx context.Context, clientKey string, req *models.AdminLoginRequest) (*models.AdminLoginResponse, error) {

	logger := middleware.LoggerFromContext(ctx).With(slog.String("client", clientKey))

	if len(s.passwordHash) == 0 {
		metrics.RecordAdminLogin("error")
		return nil, appErrors.ConfigurationError("Server configuration error: admin password is not configured.")
	}

	allowed, _, retryAfter, err := s.limiter.CheckLoginRateLimit(ctx, clientKey)
	if err != nil {
		metrics.RecordAdminLogin("error")
		return nil, appErrors.ThirdPartyError("Rate limit check failed").WithDetail(err.Error()).WithError(err)
	}

	if !allowed {
		metrics.RecordAdminLogin("limited")
		logger.Warn("Admin login rate limited", slog.Int("retryAfter", retryAfter))
		return &models.AdminLoginResponse{Success: false, Error: tooManyAttemptsMessage, RetryAfter: retryAfter},
			appErrors.TooManyRequestsError(tooManyAttemptsMessage)
	}

	if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)) != nil {
		metrics.RecordAdminLogin("invalid")
		logger.Info("Admin login rejected")
		return &models.AdminLoginResponse{Success: false, Error: incorrectPasswordMessage},
			appErrors.UnauthorizedError(incorrectPasswordMessage)
	}

	metrics.RecordAdminLogin("success")

	return &models.AdminLoginResponse{Success: true}, nil
}
