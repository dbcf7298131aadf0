package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrLineItemNotFound = errors.New("line item not found")

// CartRepository stores the line items of every user's cart. Items are
// addressed by (userID, productID); at most one item exists per pair.
type CartRepository interface {
	ListItems(ctx context.Context, userID string) ([]models.CartLineItem, error)
	// AddItem inserts the item or, if one exists, increments its quantity by
	// item.Quantity and refreshes its timestamp.
	AddItem(ctx context.Context, userID string, item models.CartLineItem) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	// DeleteItem succeeds whether or not the item exists.
	DeleteItem(ctx context.Context, userID, productID string) error
	// Watch delivers the full item list once immediately and again after every
	// change until ctx is cancelled. Setup failures are returned; failures after
	// setup go to onError.
	Watch(ctx context.Context, userID string, onSnapshot func([]models.CartLineItem), onError func(error)) error
}

// LineItemPath is the document key of a line item.
func LineItemPath(appID, userID, productID string) string {
	return fmt.Sprintf("%s%s", cartPath(appID, userID), productID)
}

func cartPath(appID, userID string) string {
	return fmt.Sprintf("artifacts/%s/users/%s/cartItems/", appID, userID)
}

type lineItemDocument struct {
	ID                  string `bson:"_id"`
	AppID               string `bson:"app_id"`
	UserID              string `bson:"user_id"`
	models.CartLineItem `bson:",inline"`
}

type cartRepository struct {
	collection *mongo.Collection
	appID      string
}

func NewCartRepo(db *mongo.Database, appID string) CartRepository {
	return &cartRepository{collection: db.Collection(cartItemsCollection), appID: appID}
}

func (r *cartRepository) ListItems(ctx context.Context, userID string) ([]models.CartLineItem, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	filter := bson.M{"app_id": r.appID, "user_id": userID}
	opts := options.Find().SetSort(bson.D{{Key: "product_id", Value: 1}})

	cursor, err := r.collection.Find(dbCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer cursor.Close(dbCtx)

	var docs []lineItemDocument
	if err := cursor.All(dbCtx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}

	items := make([]models.CartLineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.CartLineItem)
	}

	return items, nil
}

func (r *cartRepository) AddItem(ctx context.Context, userID string, item models.CartLineItem) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": LineItemPath(r.appID, userID, item.ProductID)}
	update := bson.M{
		"$inc": bson.M{"quantity": item.Quantity},
		"$set": bson.M{"added_at": time.Now().UTC()},
		"$setOnInsert": bson.M{
			"app_id":     r.appID,
			"user_id":    userID,
			"product_id": item.ProductID,
			"title":      item.Title,
			"image":      item.Image,
			"price":      item.Price,
		},
	}

	if _, err := r.collection.UpdateOne(dbCtx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": LineItemPath(r.appID, userID, productID)}
	update := bson.M{
		"$set": bson.M{
			"quantity": quantity,
			"added_at": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(dbCtx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrLineItemNotFound
	}

	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, productID string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := r.collection.DeleteOne(dbCtx, bson.M{"_id": LineItemPath(r.appID, userID, productID)}); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return nil
}

// Watch opens a change stream scoped to the user's cart path and re-reads the
// cart on every event. Change streams need a replica set or sharded cluster.
func (r *cartRepository) Watch(ctx context.Context, userID string, onSnapshot func([]models.CartLineItem), onError func(error)) error {

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "documentKey._id", Value: bson.D{
				{Key: "$regex", Value: "^" + regexp.QuoteMeta(cartPath(r.appID, userID))},
			}},
		}}},
	}

	stream, err := r.collection.Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to open cart change stream: %w", err)
	}

	items, err := r.ListItems(ctx, userID)
	if err != nil {
		_ = stream.Close(context.Background())
		return err
	}

	onSnapshot(items)

	go func() {
		defer stream.Close(context.Background())

		logger := slog.Default().With(slog.String("userId", userID), slog.String("component", "cart_watch"))

		for stream.Next(ctx) {
			items, err := r.ListItems(ctx, userID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Failed to refresh cart after change", slog.String("error", err.Error()))
				onError(err)
				continue
			}

			onSnapshot(items)
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			logger.Error("Cart change stream terminated", slog.String("error", err.Error()))
			onError(fmt.Errorf("cart change stream: %w", err))
		}
	}()

	return nil
}
