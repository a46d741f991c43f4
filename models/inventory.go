package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stock transaction types.
const (
	TxPurchase   = "purchase"
	TxUsage      = "usage"
	TxAdjustment = "adjustment"
)

type InventoryItem struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	NameEn         string             `bson:"name_en,omitempty" json:"name_en,omitempty"`
	QuantityPerBox float64            `bson:"quantity_per_box" json:"quantity_per_box"`
	Unit           string             `bson:"unit" json:"unit"`
	CostPerUnit    float64            `bson:"cost_per_unit" json:"cost_per_unit"`
	CurrentStock   float64            `bson:"current_stock" json:"current_stock"` // mutated only alongside a transaction
	MinStockAlert  float64            `bson:"min_stock_alert,omitempty" json:"min_stock_alert,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// StockTransaction is an append-only audit record; the sum of Quantity over an
// item's transactions equals its CurrentStock.
type StockTransaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID      primitive.ObjectID `bson:"item_id" json:"item_id"`
	ItemName    string             `bson:"item_name" json:"item_name"`
	Type        string             `bson:"type" json:"type"`
	Quantity    float64            `bson:"quantity" json:"quantity"` // signed, negative for usage
	CostPerUnit float64            `bson:"cost_per_unit,omitempty" json:"cost_per_unit,omitempty"`
	TotalCost   float64            `bson:"total_cost,omitempty" json:"total_cost,omitempty"`
	BoxesMade   int64              `bson:"boxes_made,omitempty" json:"boxes_made,omitempty"`
	Supplier    string             `bson:"supplier,omitempty" json:"supplier,omitempty"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	AddedBy     string             `bson:"added_by" json:"added_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
