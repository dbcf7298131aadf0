package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/XSAM/otelsql"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	productsCollection   = "products"
	ordersCollection     = "orders"
	identitiesCollection = "identities"
	cartItemsCollection  = "cart_items"
)

// Repository holds the process-wide database handles. It is built once at
// start-up and shared by every consumer.
type Repository struct {
	Client *mongo.Client
	Mongo  *mongo.Database
	DB     *sql.DB
}

func ConnectMongoDB(ctx context.Context, cfg config.Mongo) (*mongo.Client, *mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

func NewPostgresDB(cfg *config.Config) (*sql.DB, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Test the connection to make sure DB is reachable
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemPostgreSQL)); err != nil {
		slog.Warn("Failed to register database stats metrics", slog.String("error", err.Error()))
	}

	return db, nil
}

func New(ctx context.Context, cfg *config.Config) (*Repository, error) {

	client, db, err := ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}

	pg, err := NewPostgresDB(cfg)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Repository{Client: client, Mongo: db, DB: pg}, nil
}

// EnsureIndexes creates the secondary indexes the storefront queries rely on.
func (p *Repository) EnsureIndexes(ctx context.Context) error {

	indexes := map[string][]mongo.IndexModel{
		cartItemsCollection: {
			{
				Keys:    bson.D{{Key: "app_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "orderDate", Value: -1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "subcategory", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := p.Mongo.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}

	return nil
}

func (p *Repository) Close(ctx context.Context) error {

	var firstErr error

	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			firstErr = err
		}
	}

	if p.Client != nil {
		if err := p.Client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
