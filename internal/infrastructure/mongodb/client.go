// Package mongodb persists catalog products in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ingredientscout/backend/internal/infrastructure/store"
)

// Config holds MongoDB connection settings
type Config struct {
	URL                    string
	Database               string
	ServerSelectionTimeout time.Duration
}

// Client is a store.Handle over a driver client bound to one database
type Client struct {
	client   *mongo.Client
	database string
}

// Ping pings the primary
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the driver client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Collection returns a handle to a collection of the configured database
func (c *Client) Collection(name string) *mongo.Collection {
	return c.client.Database(c.database).Collection(name)
}

// Dialer returns a store.Dialer that opens and verifies a new MongoDB client
func Dialer(cfg Config) store.Dialer[*Client] {
	timeout := cfg.ServerSelectionTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return func(ctx context.Context) (*Client, error) {
		opts := options.Client().
			ApplyURI(cfg.URL).
			SetServerSelectionTimeout(timeout).
			SetRetryWrites(false)

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}

		c := &Client{client: client, database: cfg.Database}
		if err := c.Ping(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}
		return c, nil
	}
}
