package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Catalog categories offered by the shop.
const (
	CategoryVPN = "vpn"
	CategoryApp = "app"
)

// CatalogItem is a purchasable product or plan. The catalog is owned by its
// own store; the order engine only ever reads it.
type CatalogItem struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category   string             `bson:"category" json:"category"`
	Title      string             `bson:"title" json:"title"`
	PriceToman int64              `bson:"price_toman" json:"price_toman"`
	Active     bool               `bson:"active" json:"active"`
}
