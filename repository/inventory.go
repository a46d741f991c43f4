package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/athar/donation-tracker-go/config"
	models "github.com/athar/donation-tracker-go/models"
	services "github.com/athar/donation-tracker-go/services"
)

// InventoryRepository is the Mongo-backed inventory store. Stock mutations and
// their audit transactions are committed together inside a driver session
// transaction, which requires a replica-set (hosted) deployment.
type InventoryRepository struct {
	client *mongo.Client
	items  *mongo.Collection
	txs    *mongo.Collection
}

func NewInventoryRepository(cfg *config.Config) *InventoryRepository {
	return &InventoryRepository{
		client: cfg.MongoClient,
		items:  cfg.Collection("inventory_items"),
		txs:    cfg.Collection("stock_transactions"),
	}
}

// ListItems returns items oldest first; that creation order is the tie break
// the limiting-item calculation documents.
func (r *InventoryRepository) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.items.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var items []models.InventoryItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *InventoryRepository) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var item models.InventoryItem
	err = r.items.FindOne(ctx, bson.M{"_id": oid}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *InventoryRepository) SeedItems(ctx context.Context, items []models.InventoryItem) error {
	docs := make([]interface{}, len(items))
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
		docs[i] = items[i]
	}
	_, err := r.items.InsertMany(ctx, docs)
	return err
}

// RecordPurchase appends the purchase transaction and increments the stock as
// one unit. When setCost is true the item's unit cost is overwritten as well.
func (r *InventoryRepository) RecordPurchase(ctx context.Context, tx *models.StockTransaction, setCost bool) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.txs.InsertOne(sc, tx); err != nil {
			return nil, err
		}
		update := bson.M{
			"$inc": bson.M{"current_stock": tx.Quantity},
			"$set": bson.M{"updated_at": time.Now()},
		}
		if setCost {
			update["$set"] = bson.M{"updated_at": time.Now(), "cost_per_unit": tx.CostPerUnit}
		}
		res, err := r.items.UpdateOne(sc, bson.M{"_id": tx.ItemID}, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, services.ErrInvalidItem
		}
		return nil, nil
	})
	return err
}

// RecordProduction applies every deduction inside one transaction. Each
// decrement is guarded by current_stock >= required, so a concurrent producer
// that already drained an item makes this commit abort instead of overdrawing.
func (r *InventoryRepository) RecordProduction(ctx context.Context, txs []*models.StockTransaction) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()
		docs := make([]interface{}, 0, len(txs))
		for _, tx := range txs {
			if tx.ID.IsZero() {
				tx.ID = primitive.NewObjectID()
			}
			required := -tx.Quantity

			res, err := r.items.UpdateOne(sc,
				bson.M{"_id": tx.ItemID, "current_stock": bson.M{"$gte": required}},
				bson.M{
					"$inc": bson.M{"current_stock": tx.Quantity},
					"$set": bson.M{"updated_at": now},
				})
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				var item models.InventoryItem
				available := 0.0
				if err := r.items.FindOne(sc, bson.M{"_id": tx.ItemID}).Decode(&item); err == nil {
					available = item.CurrentStock
				}
				return nil, &services.InsufficientStockError{
					ItemID:    tx.ItemID.Hex(),
					ItemName:  tx.ItemName,
					Available: available,
					Required:  required,
				}
			}
			docs = append(docs, tx)
		}
		if _, err := r.txs.InsertMany(sc, docs); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// RecordAdjustment appends a signed correction and applies it to the stock in
// one transaction. Negative deltas are guarded so the stock cannot go below
// zero even against a concurrent writer.
func (r *InventoryRepository) RecordAdjustment(ctx context.Context, tx *models.StockTransaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"_id": tx.ItemID}
		if tx.Quantity < 0 {
			filter["current_stock"] = bson.M{"$gte": -tx.Quantity}
		}
		res, err := r.items.UpdateOne(sc, filter, bson.M{
			"$inc": bson.M{"current_stock": tx.Quantity},
			"$set": bson.M{"updated_at": time.Now()},
		})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			var item models.InventoryItem
			if err := r.items.FindOne(sc, bson.M{"_id": tx.ItemID}).Decode(&item); err != nil {
				return nil, services.ErrInvalidItem
			}
			return nil, &services.InsufficientStockError{
				ItemID:    tx.ItemID.Hex(),
				ItemName:  tx.ItemName,
				Available: item.CurrentStock,
				Required:  -tx.Quantity,
			}
		}
		if _, err := r.txs.InsertOne(sc, tx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *InventoryRepository) SetUnitCost(ctx context.Context, id string, cost float64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return services.ErrInvalidItem
	}
	res, err := r.items.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"cost_per_unit": cost,
		"updated_at":    time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrInvalidItem
	}
	return nil
}

func (r *InventoryRepository) ListTransactions(ctx context.Context, limit int64) ([]models.StockTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := r.txs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var txs []models.StockTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
