// Package catalog provides read access to the product catalog and first-boot
// seeding. The core never mutates catalog items.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
)

type catalogCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// Store reads catalog items from MongoDB.
type Store struct {
	collection catalogCollection
	logger     *logrus.Entry
}

// NewStore constructs a catalog Store.
func NewStore(collection catalogCollection, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Store{
		collection: collection,
		logger:     logger,
	}
}

// ListActive returns the active items of a category ordered by price.
func (s *Store) ListActive(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	if s == nil || s.collection == nil {
		return nil, errors.New("catalog store is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := s.collection.Find(ctx,
		bson.M{"category": category, "active": true},
		options.Find().SetSort(bson.D{{Key: "price_toman", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []domain.CatalogItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode catalog items: %w", err)
	}

	return items, nil
}

// Get fetches a single catalog item by id. Missing items map to
// domain.ErrItemUnavailable so callers treat missing and inactive the same way.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (domain.CatalogItem, error) {
	if s == nil || s.collection == nil {
		return domain.CatalogItem{}, errors.New("catalog store is not initialized")
	}
	if ctx == nil {
		return domain.CatalogItem{}, errors.New("context is required")
	}

	result := s.collection.FindOne(ctx, bson.M{"_id": id})
	if result == nil {
		return domain.CatalogItem{}, errors.New("find catalog item returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.CatalogItem{}, domain.ErrItemUnavailable
		}
		return domain.CatalogItem{}, fmt.Errorf("find catalog item: %w", err)
	}

	var item domain.CatalogItem
	if err := result.Decode(&item); err != nil {
		return domain.CatalogItem{}, fmt.Errorf("decode catalog item: %w", err)
	}

	return item, nil
}

// SeedDefaults inserts the default catalog when the collection is empty. It is
// safe to call on every startup.
func (s *Store) SeedDefaults(ctx context.Context) error {
	if s == nil || s.collection == nil {
		return errors.New("catalog store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	count, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("count catalog items: %w", err)
	}
	if count > 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(defaultItems))
	for _, item := range defaultItems {
		docs = append(docs, item)
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed catalog items: %w", err)
	}

	s.logger.WithFields(logging.Fields{
		"event": "catalog_seeded",
		"items": len(defaultItems),
	}).Info("seeded default catalog")

	return nil
}

// defaultItems mirrors the launch catalog: VPN data plans plus app
// subscription plans, prices in toman.
var defaultItems = []domain.CatalogItem{
	{Category: domain.CategoryVPN, Title: "VPN 30d - 50GB", PriceToman: 129000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN 30d - 80GB", PriceToman: 185000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN 30d - 100GB", PriceToman: 220000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN 90d - 150GB", PriceToman: 340000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN 90d - 200GB", PriceToman: 420000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN 90d - 250GB", PriceToman: 500000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN 90d - 300GB", PriceToman: 585000, Active: true},
	{Category: domain.CategoryVPN, Title: "VPN trial 1d - 1GB", PriceToman: 0, Active: true},

	{Category: domain.CategoryApp, Title: "Spotify - 1 month", PriceToman: 120000, Active: true},
	{Category: domain.CategoryApp, Title: "Spotify - 3 months", PriceToman: 330000, Active: true},
	{Category: domain.CategoryApp, Title: "Spotify - 12 months", PriceToman: 1200000, Active: true},
	{Category: domain.CategoryApp, Title: "Apple Music - 1 month", PriceToman: 150000, Active: true},
	{Category: domain.CategoryApp, Title: "Apple Music - 3 months", PriceToman: 400000, Active: true},
	{Category: domain.CategoryApp, Title: "Apple Music - 12 months", PriceToman: 1500000, Active: true},
	{Category: domain.CategoryApp, Title: "Apple TV - 1 month", PriceToman: 100000, Active: true},
	{Category: domain.CategoryApp, Title: "Apple TV - 3 months", PriceToman: 270000, Active: true},
	{Category: domain.CategoryApp, Title: "Apple TV - 12 months", PriceToman: 950000, Active: true},
	{Category: domain.CategoryApp, Title: "Disney+ - 1 month", PriceToman: 130000, Active: true},
	{Category: domain.CategoryApp, Title: "Disney+ - 3 months", PriceToman: 350000, Active: true},
	{Category: domain.CategoryApp, Title: "Disney+ - 12 months", PriceToman: 1100000, Active: true},
}
