package service

import (
	"context"
	"errors"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ProviderAnonymous = "anonymous"
	ProviderToken     = "custom_token"
)

// AuthService is the identity backend: it signs sessions in and issues the
// session tokens that later act as bootstrap tokens.
type AuthService interface {
	SignInAnonymously(ctx context.Context) (string, error)
	SignInWithToken(ctx context.Context, token string) (string, error)
	IssueToken(userID string, anonymous bool) (string, error)
	VerifyToken(token string) (*models.Claims, error)
}

type authService struct {
	repo   repository.IdentityRepository
	jwtKey []byte
	ttl    time.Duration
}

func NewAuthService(repo repository.IdentityRepository, jwtKey []byte, ttl time.Duration) AuthService {
	return &authService{repo: repo, jwtKey: jwtKey, ttl: ttl}
}

func (s *authService) SignInAnonymously(ctx context.Context) (string, error) {

	identity := &models.Identity{
		UserID:   uuid.NewString(),
		Provider: ProviderAnonymous,
	}

	if err := s.repo.CreateIdentity(ctx, identity); err != nil {
		return "", appErrors.DatabaseError("Failed to create anonymous identity").WithError(err)
	}

	return identity.UserID, nil
}

// SignInWithToken accepts a token issued by IssueToken. The identity record is
// refreshed, or created when the token names an identity this store has not
// seen yet.
func (s *authService) SignInWithToken(ctx context.Context, token string) (string, error) {

	claims, err := s.VerifyToken(token)
	if err != nil {
		return "", err
	}

	err = s.repo.TouchIdentity(ctx, claims.UserID)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		err = s.repo.CreateIdentity(ctx, &models.Identity{UserID: claims.UserID, Provider: ProviderToken})
	}

	if err != nil {
		return "", appErrors.DatabaseError("Failed to record sign-in").WithError(err)
	}

	return claims.UserID, nil
}

func (s *authService) IssueToken(userID string, anonymous bool) (string, error) {

	now := time.Now()

	claims := &models.Claims{
		UserID:    userID,
		Anonymous: anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", appErrors.InternalError("Failed to generate session token").WithError(err)
	}

	return tokenString, nil
}

func (s *authService) VerifyToken(token string) (*models.Claims, error) {

	claims, err := middleware.ParseToken(token, s.jwtKey)
	if err != nil {
		return nil, appErrors.UnauthorizedError("Invalid or expired token").WithError(err)
	}

	return claims, nil
}
