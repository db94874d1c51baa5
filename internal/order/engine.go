// Package order owns the order lifecycle: creation, proof attachment, and
// every admin-driven status transition.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
)

// maxCodeAttempts bounds order code regeneration on unique-index collisions.
const maxCodeAttempts = 5

type ordersCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// ItemGetter is the slice of the catalog store the engine consumes.
type ItemGetter interface {
	Get(ctx context.Context, id primitive.ObjectID) (domain.CatalogItem, error)
}

// Engine implements the order state machine on top of MongoDB. Status guards
// are expressed in the update filters so each transition is a single atomic
// document operation.
type Engine struct {
	orders  ordersCollection
	catalog ItemGetter
	logger  *logrus.Entry

	// overridable in tests
	now     func() time.Time
	newCode func(time.Time) string
}

// NewEngine constructs an order Engine.
func NewEngine(orders ordersCollection, catalog ItemGetter, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Engine{
		orders:  orders,
		catalog: catalog,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newCode: domain.NewOrderCode,
	}
}

// Create snapshots the selected catalog item into a new awaiting_payment
// order. The item must be active at selection time. Order code collisions are
// retried with freshly generated codes.
func (e *Engine) Create(ctx context.Context, userID int64, itemID primitive.ObjectID) (domain.Order, error) {
	if e == nil || e.orders == nil || e.catalog == nil {
		return domain.Order{}, errors.New("order engine is not initialized")
	}
	if ctx == nil {
		return domain.Order{}, errors.New("context is required")
	}
	if userID == 0 {
		return domain.Order{}, errors.New("user id is required")
	}

	item, err := e.catalog.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemUnavailable) {
			return domain.Order{}, domain.ErrItemUnavailable
		}
		return domain.Order{}, fmt.Errorf("load catalog item: %w", err)
	}
	if !item.Active {
		return domain.Order{}, domain.ErrItemUnavailable
	}

	now := e.now()
	order := domain.Order{
		UserID:     userID,
		Category:   item.Category,
		ItemTitle:  item.Title,
		PriceToman: item.PriceToman,
		ItemID:     item.ID,
		Status:     domain.StatusAwaitingPayment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		order.ID = primitive.NewObjectID()
		order.OrderCode = e.newCode(now)

		_, err := e.orders.InsertOne(ctx, order)
		if err == nil {
			e.logger.WithFields(logging.Fields{
				"event":      "order_created",
				"user_id":    userID,
				"order_code": order.OrderCode,
				"category":   order.Category,
			}).Info("created order")
			return order, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return domain.Order{}, fmt.Errorf("insert order: %w", err)
		}

		e.logger.WithFields(logging.Fields{
			"event":      "order_code_collision",
			"order_code": order.OrderCode,
			"attempt":    attempt,
		}).Warn("order code collision, regenerating")
	}

	return domain.Order{}, domain.ErrCodeCollision
}

// AttachProof binds a payment proof to the user's most recently created
// awaiting_payment order and moves it to proof_submitted. When the user has
// no such order the upload is ignored: ok=false and no error, so unsolicited
// images never surface failures.
func (e *Engine) AttachProof(ctx context.Context, userID int64, proof domain.ProofRef) (domain.Order, bool, error) {
	if e == nil || e.orders == nil {
		return domain.Order{}, false, errors.New("order engine is not initialized")
	}
	if ctx == nil {
		return domain.Order{}, false, errors.New("context is required")
	}

	result := e.orders.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "status": domain.StatusAwaitingPayment},
		bson.M{"$set": bson.M{
			"status":        domain.StatusProofSubmitted,
			"proof_file_id": proof.FileID,
			"proof_kind":    proof.Kind,
			"updated_at":    e.now(),
		}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetReturnDocument(options.After),
	)
	if result == nil {
		return domain.Order{}, false, errors.New("attach proof returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, fmt.Errorf("attach proof: %w", err)
	}

	var order domain.Order
	if err := result.Decode(&order); err != nil {
		return domain.Order{}, false, fmt.Errorf("decode order: %w", err)
	}

	e.logger.WithFields(logging.Fields{
		"event":      "proof_attached",
		"user_id":    userID,
		"order_code": order.OrderCode,
		"proof_kind": proof.Kind,
	}).Info("attached payment proof")

	return order, true, nil
}

// Approve moves an order to approved and records the deciding admin.
func (e *Engine) Approve(ctx context.Context, orderID primitive.ObjectID, adminID int64) (domain.Order, error) {
	return e.transition(ctx, orderID, domain.StatusApproved, bson.M{
		"status":              domain.StatusApproved,
		"decided_by_admin_id": adminID,
	})
}

// Reject moves an order to rejected and records the deciding admin. The
// rejection reason arrives later via RecordRejectionReason.
func (e *Engine) Reject(ctx context.Context, orderID primitive.ObjectID, adminID int64) (domain.Order, error) {
	return e.transition(ctx, orderID, domain.StatusRejected, bson.M{
		"status":              domain.StatusRejected,
		"decided_by_admin_id": adminID,
	})
}

// Cancel moves an order to cancelled.
func (e *Engine) Cancel(ctx context.Context, orderID primitive.ObjectID) (domain.Order, error) {
	return e.transition(ctx, orderID, domain.StatusCancelled, bson.M{
		"status": domain.StatusCancelled,
	})
}

// FinalizeDelivery moves an approved order to delivered and stamps the
// delivery note. The caller copies the delivery payload to the user.
func (e *Engine) FinalizeDelivery(ctx context.Context, orderID primitive.ObjectID, adminID int64) (domain.Order, error) {
	note := fmt.Sprintf("delivered_by_admin:%d at %s", adminID, e.now().Format(time.RFC3339))
	return e.transition(ctx, orderID, domain.StatusDelivered, bson.M{
		"status":        domain.StatusDelivered,
		"delivery_note": note,
	})
}

// RecordRejectionReason stores the admin-provided reason on a rejected order.
func (e *Engine) RecordRejectionReason(ctx context.Context, orderID primitive.ObjectID, reason string) (domain.Order, error) {
	if e == nil || e.orders == nil {
		return domain.Order{}, errors.New("order engine is not initialized")
	}
	if ctx == nil {
		return domain.Order{}, errors.New("context is required")
	}

	result := e.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": orderID, "status": domain.StatusRejected},
		bson.M{"$set": bson.M{
			"rejected_reason": reason,
			"updated_at":      e.now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result == nil {
		return domain.Order{}, errors.New("record rejection reason returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, e.explainMiss(ctx, orderID)
		}
		return domain.Order{}, fmt.Errorf("record rejection reason: %w", err)
	}

	var order domain.Order
	if err := result.Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}

	return order, nil
}

// Get fetches an order by id.
func (e *Engine) Get(ctx context.Context, orderID primitive.ObjectID) (domain.Order, error) {
	if e == nil || e.orders == nil {
		return domain.Order{}, errors.New("order engine is not initialized")
	}
	if ctx == nil {
		return domain.Order{}, errors.New("context is required")
	}

	result := e.orders.FindOne(ctx, bson.M{"_id": orderID})
	if result == nil {
		return domain.Order{}, errors.New("find order returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}

	var order domain.Order
	if err := result.Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}

	return order, nil
}

// ListRecent returns up to limit orders, newest first. Used by the admin CSV
// export.
func (e *Engine) ListRecent(ctx context.Context, limit int64) ([]domain.Order, error) {
	if e == nil || e.orders == nil {
		return nil, errors.New("order engine is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := e.orders.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	return orders, nil
}

// transition performs a guarded status change. The filter only matches orders
// whose current status may legally move to the target status, which makes a
// re-invocation on a terminal order miss and report ErrInvalidTransition.
func (e *Engine) transition(ctx context.Context, orderID primitive.ObjectID, to domain.Status, set bson.M) (domain.Order, error) {
	if e == nil || e.orders == nil {
		return domain.Order{}, errors.New("order engine is not initialized")
	}
	if ctx == nil {
		return domain.Order{}, errors.New("context is required")
	}

	sources := domain.SourcesOf(to)
	if len(sources) == 0 {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	set["updated_at"] = e.now()

	result := e.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": orderID, "status": bson.M{"$in": sources}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result == nil {
		return domain.Order{}, errors.New("order transition returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, e.explainMiss(ctx, orderID)
		}
		return domain.Order{}, fmt.Errorf("order transition: %w", err)
	}

	var order domain.Order
	if err := result.Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}

	e.logger.WithFields(logging.Fields{
		"event":      "order_transition",
		"order_code": order.OrderCode,
		"status":     order.Status,
	}).Info("order status changed")

	return order, nil
}

// explainMiss distinguishes a missing order from one in the wrong state after
// a guarded update matched nothing.
func (e *Engine) explainMiss(ctx context.Context, orderID primitive.ObjectID) error {
	result := e.orders.FindOne(ctx, bson.M{"_id": orderID})
	if result == nil {
		return domain.ErrOrderNotFound
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("inspect order: %w", err)
	}

	return domain.ErrInvalidTransition
}
