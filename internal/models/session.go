package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. The subject is the session identity.
type Claims struct {
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous,omitempty"`
	jwt.RegisteredClaims
}

// Identity is an established sign-in, persisted in the "identities" collection.
type Identity struct {
	UserID     string    `bson:"_id" json:"userId"`
	Provider   string    `bson:"provider" json:"provider"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"lastSeenAt"`
}

type OpenSessionRequest struct {
	BootstrapToken string `json:"bootstrapToken,omitempty"`
}

type SessionResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	IsAuthReady bool   `json:"isAuthReady"`
	Warning     string `json:"warning,omitempty"`
}

type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
