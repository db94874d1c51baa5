package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeSettingsCollection struct {
	findResult *mongo.SingleResult
	updateErr  error

	lastFilter interface{}
	lastUpdate interface{}
	lastUpsert bool
}

func (f *fakeSettingsCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	f.lastFilter = filter
	return f.findResult
}

func (f *fakeSettingsCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.lastFilter = filter
	f.lastUpdate = update
	f.lastUpsert = len(opts) > 0 && opts[0] != nil && opts[0].Upsert != nil && *opts[0].Upsert
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func TestMaintenanceEnabledReadsFlag(t *testing.T) {
	coll := &fakeSettingsCollection{
		findResult: mongo.NewSingleResultFromDocument(bson.M{"key": "maintenance", "value": "1"}, nil, nil),
	}
	settings := NewSettings(coll)

	enabled, err := settings.MaintenanceEnabled(context.Background())
	if err != nil {
		t.Fatalf("MaintenanceEnabled returned error: %v", err)
	}
	if !enabled {
		t.Fatalf("expected maintenance to be enabled")
	}
}

func TestMaintenanceEnabledDefaultsToOff(t *testing.T) {
	coll := &fakeSettingsCollection{
		findResult: mongo.NewSingleResultFromDocument(bson.M{}, mongo.ErrNoDocuments, nil),
	}
	settings := NewSettings(coll)

	enabled, err := settings.MaintenanceEnabled(context.Background())
	if err != nil {
		t.Fatalf("expected missing row to mean off, got error: %v", err)
	}
	if enabled {
		t.Fatalf("expected maintenance to default to off")
	}
}

func TestSetMaintenanceUpserts(t *testing.T) {
	coll := &fakeSettingsCollection{}
	settings := NewSettings(coll)

	if err := settings.SetMaintenance(context.Background(), true); err != nil {
		t.Fatalf("SetMaintenance returned error: %v", err)
	}

	if !coll.lastUpsert {
		t.Fatalf("expected upsert option")
	}

	update, ok := coll.lastUpdate.(bson.M)
	if !ok {
		t.Fatalf("unexpected update type %T", coll.lastUpdate)
	}
	set, ok := update["$set"].(bson.M)
	if !ok || set["value"] != "1" {
		t.Fatalf("expected value=1 in update, got %v", update)
	}
}

func TestSetMaintenancePropagatesErrors(t *testing.T) {
	errWrite := errors.New("write failed")
	coll := &fakeSettingsCollection{updateErr: errWrite}
	settings := NewSettings(coll)

	if err := settings.SetMaintenance(context.Background(), false); !errors.Is(err, errWrite) {
		t.Fatalf("expected write error to propagate, got %v", err)
	}
}
