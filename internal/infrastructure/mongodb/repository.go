package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ingredientscout/backend/internal/domain"
)

// fieldFirstSeen is set once, when a product is inserted
const fieldFirstSeen = "first_seen"

// ClientProvider hands out the live client; store.ConnectionManager[*Client] implements it
type ClientProvider interface {
	Get(ctx context.Context) (*Client, error)
}

// ProductRepository upserts catalog products keyed by productId
type ProductRepository struct {
	clients    ClientProvider
	collection string
	logger     domain.Logger
	now        func() time.Time
}

// NewProductRepository creates a repository writing to collection
func NewProductRepository(clients ClientProvider, collection string, logger domain.Logger) *ProductRepository {
	return &ProductRepository{
		clients:    clients,
		collection: collection,
		logger:     logger.With("component", "mongo_repository"),
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique productId index the upserts rely on
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	client, err := r.clients.Get(ctx)
	if err != nil {
		return err
	}

	_, err = client.Collection(r.collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: domain.FieldProductID, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_product_id"),
	})
	if err != nil {
		return fmt.Errorf("%w: create productId index: %v", domain.ErrPersistence, err)
	}
	return nil
}

// SaveIngredients upserts every product, stamping ingredient name, source id and observation time.
// It returns the number of documents inserted or matched.
func (r *ProductRepository) SaveIngredients(ctx context.Context, products []domain.Product, ingredientName, sourceID string) (int, error) {
	models := buildUpsertModels(products, ingredientName, sourceID, r.now().UTC())
	if len(models) == 0 {
		return 0, nil
	}

	client, err := r.clients.Get(ctx)
	if err != nil {
		return 0, err
	}

	res, err := client.Collection(r.collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error(ctx, "mongodb save error", "error", err)
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	count := int(res.UpsertedCount + res.MatchedCount)
	r.logger.Info(ctx, "saved products",
		"ingredient_name", ingredientName, "source_id", sourceID,
		"upserted", res.UpsertedCount, "matched", res.MatchedCount)
	return count, nil
}

// buildUpsertModels turns products into insert-or-overwrite writes keyed by productId.
// Products without an identifier cannot be keyed and are skipped.
func buildUpsertModels(products []domain.Product, ingredientName, sourceID string, observedAt time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		id := p.ProductID()
		if id == "" {
			continue
		}

		doc := bson.M(p.Enrich(ingredientName, sourceID, observedAt))
		doc[domain.FieldProductID] = id
		delete(doc, "_id")
		// $set and $setOnInsert may not touch the same path
		delete(doc, fieldFirstSeen)

		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{domain.FieldProductID: id}).
			SetUpdate(bson.M{
				"$set":         doc,
				"$setOnInsert": bson.M{fieldFirstSeen: observedAt},
			}).
			SetUpsert(true))
	}
	return models
}
