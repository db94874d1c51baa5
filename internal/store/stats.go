package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_storefront_bot/internal/domain"
)

type statsCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// OrderStats aggregates order volume and revenue for one reporting period.
// Revenue counts approved and delivered orders only.
type OrderStats struct {
	Total        int64
	Approved     int64
	Delivered    int64
	RevenueToman int64
}

// StatsProvider exposes helper methods to compute the admin-facing counters
// without leaking MongoDB internals to callers.
type StatsProvider struct {
	users  statsCollection
	orders statsCollection
}

// NewStatsProvider constructs a StatsProvider backed by the users and orders
// collections.
func NewStatsProvider(users, orders statsCollection) *StatsProvider {
	return &StatsProvider{
		users:  users,
		orders: orders,
	}
}

// CountUsers returns the number of known users.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountActiveUsers returns the number of users seen at or after the given time.
func (p *StatsProvider) CountActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, bson.M{"last_seen_at": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}

	return count, nil
}

// OrdersSince computes order counters and revenue for orders created at or
// after the given time.
func (p *StatsProvider) OrdersSince(ctx context.Context, since time.Time) (OrderStats, error) {
	if ctx == nil {
		return OrderStats{}, errors.New("context is required")
	}
	if p == nil || p.orders == nil {
		return OrderStats{}, errors.New("stats provider is not initialized")
	}

	createdFilter := bson.M{"created_at": bson.M{"$gte": since}}
	paidStatuses := bson.A{domain.StatusApproved, domain.StatusDelivered}

	var stats OrderStats
	var err error

	if stats.Total, err = p.orders.CountDocuments(ctx, createdFilter); err != nil {
		return OrderStats{}, fmt.Errorf("count orders: %w", err)
	}

	approvedFilter := bson.M{
		"created_at": bson.M{"$gte": since},
		"status":     bson.M{"$in": paidStatuses},
	}
	if stats.Approved, err = p.orders.CountDocuments(ctx, approvedFilter); err != nil {
		return OrderStats{}, fmt.Errorf("count approved orders: %w", err)
	}

	deliveredFilter := bson.M{
		"created_at": bson.M{"$gte": since},
		"status":     domain.StatusDelivered,
	}
	if stats.Delivered, err = p.orders.CountDocuments(ctx, deliveredFilter); err != nil {
		return OrderStats{}, fmt.Errorf("count delivered orders: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: approvedFilter}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"revenue": bson.M{"$sum": "$price_toman"},
		}}},
	}

	cursor, err := p.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return OrderStats{}, fmt.Errorf("aggregate revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Revenue int64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return OrderStats{}, fmt.Errorf("decode revenue: %w", err)
	}
	if len(rows) > 0 {
		stats.RevenueToman = rows[0].Revenue
	}

	return stats, nil
}
