// Package directory tracks known users: identity refresh on every
// interaction, broadcast opt-in, blocked flags, and segment resolution.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
)

type usersCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Directory persists users and keeps their last-seen timestamp updated on
// every interaction.
type Directory struct {
	users  usersCollection
	logger *logrus.Entry
	now    func() time.Time
}

// New constructs a Directory for the provided users collection.
func New(users usersCollection, logger *logrus.Entry) *Directory {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Directory{
		users:  users,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// UpsertSeen creates the user on first contact and refreshes profile fields
// and last_seen_at on every call. New users default to broadcast opt-in.
func (d *Directory) UpsertSeen(ctx context.Context, profile domain.Profile) (bool, error) {
	if d == nil || d.users == nil {
		return false, errors.New("directory is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if profile.UserID == 0 {
		return false, errors.New("user id is required")
	}

	now := d.now()
	update := bson.M{
		"$set": bson.M{
			"username":      profile.Username,
			"first_name":    profile.FirstName,
			"last_name":     profile.LastName,
			"language_code": profile.LanguageCode,
			"updated_at":    now,
			"last_seen_at":  now,
		},
		"$setOnInsert": bson.M{
			"user_id":         profile.UserID,
			"allow_broadcast": true,
			"blocked":         false,
			"created_at":      now,
		},
	}

	result, err := d.users.UpdateOne(ctx,
		bson.M{"user_id": profile.UserID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}

	created := result != nil && result.UpsertedCount > 0
	if created {
		d.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": profile.UserID,
		}).Info("registered new user")
		return true, nil
	}

	d.logger.WithFields(logging.Fields{
		"event":   "user_seen",
		"user_id": profile.UserID,
	}).Debug("updated user last seen")

	return false, nil
}

// Get fetches a user by Telegram user id.
func (d *Directory) Get(ctx context.Context, userID int64) (domain.User, error) {
	if d == nil || d.users == nil {
		return domain.User{}, errors.New("directory is not initialized")
	}
	if ctx == nil {
		return domain.User{}, errors.New("context is required")
	}
	if userID == 0 {
		return domain.User{}, errors.New("user id is required")
	}

	result := d.users.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return domain.User{}, errors.New("find user returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	var user domain.User
	if err := result.Decode(&user); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// SetOptIn flips the broadcast opt-in flag.
func (d *Directory) SetOptIn(ctx context.Context, userID int64, optIn bool) error {
	return d.setFlags(ctx, userID, bson.M{"allow_broadcast": optIn})
}

// MarkDeliveryBlocked records that a delivery failed permanently: the user
// blocked the bot or deactivated. Future segment resolutions skip them.
func (d *Directory) MarkDeliveryBlocked(ctx context.Context, userID int64) error {
	if err := d.setFlags(ctx, userID, bson.M{"blocked": true, "allow_broadcast": false}); err != nil {
		return err
	}

	d.logger.WithFields(logging.Fields{
		"event":   "user_marked_blocked",
		"user_id": userID,
	}).Info("marked user as blocked after permanent delivery failure")

	return nil
}

func (d *Directory) setFlags(ctx context.Context, userID int64, flags bson.M) error {
	if d == nil || d.users == nil {
		return errors.New("directory is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if userID == 0 {
		return errors.New("user id is required")
	}

	flags["updated_at"] = d.now()

	_, err := d.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": flags},
	)
	if err != nil {
		return fmt.Errorf("update user flags: %w", err)
	}

	return nil
}

// ListSegment resolves a segment name to the list of recipient user ids.
// Both segments exclude opted-out users; active30 additionally requires a
// last-seen within domain.ActiveWindow.
func (d *Directory) ListSegment(ctx context.Context, segment string) ([]int64, error) {
	if d == nil || d.users == nil {
		return nil, errors.New("directory is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	filter := bson.M{"allow_broadcast": true}
	switch segment {
	case domain.SegmentAll:
	case domain.SegmentActive30:
		filter["last_seen_at"] = bson.M{"$gte": d.now().Add(-domain.ActiveWindow)}
	default:
		return nil, fmt.Errorf("unknown segment %q", segment)
	}

	cursor, err := d.users.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"user_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list segment: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserID int64 `bson:"user_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode segment: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}

	return ids, nil
}

// ListAll returns every known user ordered by registration time. Used by the
// admin CSV export.
func (d *Directory) ListAll(ctx context.Context) ([]domain.User, error) {
	if d == nil || d.users == nil {
		return nil, errors.New("directory is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := d.users.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	return users, nil
}
