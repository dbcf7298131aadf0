package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository records the identities handed out by sign-in so a
// presented token can be checked against a known identity.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	TouchIdentity(ctx context.Context, userID string) error
}

type identityRepository struct {
	collection *mongo.Collection
}

func NewIdentityRepo(db *mongo.Database) IdentityRepository {
	return &identityRepository{collection: db.Collection(identitiesCollection)}
}

func (r *identityRepository) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.LastSeenAt = now

	if _, err := r.collection.InsertOne(dbCtx, identity); err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	return nil
}

func (r *identityRepository) TouchIdentity(ctx context.Context, userID string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateOne(dbCtx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_seen_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch identity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrIdentityNotFound
	}

	return nil
}
