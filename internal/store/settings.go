package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingMaintenance = "maintenance"

type settingsCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type settingRow struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

// Settings reads and writes the key-value settings collection. Today that is
// only the maintenance flag.
type Settings struct {
	collection settingsCollection
}

// NewSettings constructs a Settings store backed by the given collection.
func NewSettings(collection settingsCollection) *Settings {
	return &Settings{collection: collection}
}

// MaintenanceEnabled reports whether the maintenance gate is on. A missing row
// means maintenance is off.
func (s *Settings) MaintenanceEnabled(ctx context.Context) (bool, error) {
	if s == nil || s.collection == nil {
		return false, errors.New("settings store is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}

	result := s.collection.FindOne(ctx, bson.M{"key": settingMaintenance})
	if result == nil {
		return false, errors.New("find setting returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("find setting: %w", err)
	}

	var row settingRow
	if err := result.Decode(&row); err != nil {
		return false, fmt.Errorf("decode setting: %w", err)
	}

	return row.Value == "1", nil
}

// SetMaintenance flips the maintenance gate, creating the row if needed.
func (s *Settings) SetMaintenance(ctx context.Context, enabled bool) error {
	if s == nil || s.collection == nil {
		return errors.New("settings store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	value := "0"
	if enabled {
		value = "1"
	}

	_, err := s.collection.UpdateOne(ctx,
		bson.M{"key": settingMaintenance},
		bson.M{"$set": bson.M{"key": settingMaintenance, "value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set maintenance: %w", err)
	}

	return nil
}
