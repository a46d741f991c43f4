package services

import (
	"context"
	"fmt"
	"math"
	"time"

	models "github.com/athar/donation-tracker-go/models"
)

// TargetBoxes is the campaign production goal.
const TargetBoxes = 500

// InventoryStore is the persistence boundary of the ledger. Purchase and
// production writes must pair the transaction append with the stock mutation
// atomically; production across items is all-or-nothing and must fail with
// *InsufficientStockError when any item's guarded decrement does not match.
type InventoryStore interface {
	// ListItems returns items in creation order. That order is the documented
	// tie break for the limiting-item calculation.
	ListItems(ctx context.Context) ([]models.InventoryItem, error)
	GetItem(ctx context.Context, id string) (*models.InventoryItem, error)
	SeedItems(ctx context.Context, items []models.InventoryItem) error
	RecordPurchase(ctx context.Context, tx *models.StockTransaction, setCost bool) error
	RecordProduction(ctx context.Context, txs []*models.StockTransaction) error
	RecordAdjustment(ctx context.Context, tx *models.StockTransaction) error
	SetUnitCost(ctx context.Context, id string, cost float64) error
	ListTransactions(ctx context.Context, limit int64) ([]models.StockTransaction, error)
}

// Ledger tracks per-ingredient stock and turns it into finished charity boxes.
type Ledger struct {
	store InventoryStore
	now   func() time.Time
}

func NewLedger(store InventoryStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// defaultCatalog seeds a fresh deployment; stock starts at zero and the alert
// threshold covers 50 boxes worth of each ingredient.
var defaultCatalog = []models.InventoryItem{
	{Name: "أرز مصري", NameEn: "Rice", QuantityPerBox: 2, Unit: "كجم"},
	{Name: "سكر أبيض", NameEn: "Sugar", QuantityPerBox: 1, Unit: "كجم"},
	{Name: "زيت خليط", NameEn: "Oil", QuantityPerBox: 1, Unit: "لتر"},
	{Name: "مكرونة 350 جم", NameEn: "Pasta", QuantityPerBox: 3, Unit: "كيس"},
	{Name: "فول", NameEn: "Fava Beans", QuantityPerBox: 1, Unit: "كجم"},
	{Name: "عدس", NameEn: "Lentils", QuantityPerBox: 0.5, Unit: "كجم"},
	{Name: "تمر", NameEn: "Dates", QuantityPerBox: 0.7, Unit: "كجم"},
	{Name: "صلصة", NameEn: "Tomato Paste", QuantityPerBox: 0.3, Unit: "كجم"},
	{Name: "شاي", NameEn: "Tea", QuantityPerBox: 40, Unit: "جم"},
	{Name: "ملح", NameEn: "Salt", QuantityPerBox: 1, Unit: "كيس"},
}

// Bootstrap seeds the default catalog once, when the item collection is empty.
func (l *Ledger) Bootstrap(ctx context.Context) error {
	items, err := l.store.ListItems(ctx)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return nil
	}
	now := l.now()
	seed := make([]models.InventoryItem, len(defaultCatalog))
	for i, item := range defaultCatalog {
		item.MinStockAlert = item.QuantityPerBox * 50
		item.CreatedAt = now
		item.UpdatedAt = now
		seed[i] = item
	}
	return l.store.SeedItems(ctx, seed)
}

// PossibleBoxes is the binding-constraint calculation: for each item,
// floor(stock / perBox); the producible count is the minimum and the item
// achieving it is the limiting item. Ties go to the first item in creation
// order. An empty catalog produces zero boxes and no limiting item.
func PossibleBoxes(items []models.InventoryItem) (int64, *models.InventoryItem) {
	if len(items) == 0 {
		return 0, nil
	}
	var limiting *models.InventoryItem
	min := int64(math.MaxInt64)
	for i := range items {
		item := &items[i]
		if item.QuantityPerBox <= 0 {
			continue
		}
		possible := int64(math.Floor(item.CurrentStock / item.QuantityPerBox))
		if possible < min {
			min = possible
			limiting = item
		}
	}
	if limiting == nil {
		return 0, nil
	}
	return min, limiting
}

// InventoryStats are derived figures for the dashboard overview.
type InventoryStats struct {
	PossibleBoxes   int64                 `json:"possible_boxes"`
	LimitingItem    *models.InventoryItem `json:"limiting_item,omitempty"`
	TotalStockValue float64               `json:"total_stock_value"`
	CostPerBox      float64               `json:"cost_per_box"`
	NeededForTarget int64                 `json:"needed_for_target"`
}

// Stats recomputes the overview figures from the current item set.
func (l *Ledger) Stats(ctx context.Context) (InventoryStats, error) {
	items, err := l.store.ListItems(ctx)
	if err != nil {
		return InventoryStats{}, err
	}
	possible, limiting := PossibleBoxes(items)
	st := InventoryStats{PossibleBoxes: possible, LimitingItem: limiting}
	for _, item := range items {
		st.TotalStockValue += item.CurrentStock * item.CostPerUnit
		st.CostPerBox += item.QuantityPerBox * item.CostPerUnit
	}
	if possible < TargetBoxes {
		st.NeededForTarget = TargetBoxes - possible
	}
	return st, nil
}

// AddStock records a purchase: one transaction plus the stock increment. A
// positive costPerUnit overwrites the item's current unit cost (last write
// wins, no averaging); zero leaves it untouched.
func (l *Ledger) AddStock(ctx context.Context, itemID string, quantity, costPerUnit float64, supplier, notes, actor string) (*models.StockTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be greater than 0")
	}
	if costPerUnit < 0 {
		return nil, fmt.Errorf("cost per unit must not be negative")
	}
	item, err := l.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrInvalidItem
	}

	tx := &models.StockTransaction{
		ItemID:      item.ID,
		ItemName:    item.Name,
		Type:        models.TxPurchase,
		Quantity:    quantity,
		CostPerUnit: costPerUnit,
		TotalCost:   quantity * costPerUnit,
		Supplier:    supplier,
		Notes:       notes,
		AddedBy:     actor,
		CreatedAt:   l.now(),
	}
	if err := l.store.RecordPurchase(ctx, tx, costPerUnit > 0); err != nil {
		return nil, err
	}
	return tx, nil
}

// ProduceBoxes deducts every ingredient for count boxes. The preflight checks
// all items before any write; the store applies the deductions as a single
// unit, so two racing producers cannot both pass against stale stock.
func (l *Ledger) ProduceBoxes(ctx context.Context, count int64, actor string) ([]*models.StockTransaction, error) {
	if count <= 0 {
		return nil, fmt.Errorf("box count must be greater than 0")
	}
	items, err := l.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("inventory is empty")
	}

	now := l.now()
	txs := make([]*models.StockTransaction, 0, len(items))
	for i := range items {
		item := &items[i]
		required := item.QuantityPerBox * float64(count)
		if item.CurrentStock < required {
			return nil, &InsufficientStockError{
				ItemID:    item.ID.Hex(),
				ItemName:  item.Name,
				Available: item.CurrentStock,
				Required:  required,
			}
		}
		txs = append(txs, &models.StockTransaction{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Type:      models.TxUsage,
			Quantity:  -required,
			BoxesMade: count,
			Notes:     fmt.Sprintf("تجهيز %d شنطة", count),
			AddedBy:   actor,
			CreatedAt: now,
		})
	}

	if err := l.store.RecordProduction(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// AdjustStock corrects an item's stock level by a signed delta (spoilage,
// recount, damaged goods). Like every stock movement it is backed by an
// audit transaction; a negative delta may not take the stock below zero.
func (l *Ledger) AdjustStock(ctx context.Context, itemID string, delta float64, notes, actor string) (*models.StockTransaction, error) {
	if delta == 0 {
		return nil, fmt.Errorf("adjustment delta must not be zero")
	}
	item, err := l.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrInvalidItem
	}
	if delta < 0 && item.CurrentStock+delta < 0 {
		return nil, &InsufficientStockError{
			ItemID:    item.ID.Hex(),
			ItemName:  item.Name,
			Available: item.CurrentStock,
			Required:  -delta,
		}
	}

	tx := &models.StockTransaction{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Type:      models.TxAdjustment,
		Quantity:  delta,
		Notes:     notes,
		AddedBy:   actor,
		CreatedAt: l.now(),
	}
	if err := l.store.RecordAdjustment(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SetUnitCost corrects an item's unit cost. A cost correction is not a stock
// movement, so no transaction is recorded.
func (l *Ledger) SetUnitCost(ctx context.Context, itemID string, cost float64) error {
	if cost < 0 {
		return fmt.Errorf("cost must not be negative")
	}
	item, err := l.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrInvalidItem
	}
	return l.store.SetUnitCost(ctx, itemID, cost)
}

// Items lists the catalog in creation order.
func (l *Ledger) Items(ctx context.Context) ([]models.InventoryItem, error) {
	return l.store.ListItems(ctx)
}

// Transactions lists recent stock transactions, newest first.
func (l *Ledger) Transactions(ctx context.Context, limit int64) ([]models.StockTransaction, error) {
	return l.store.ListTransactions(ctx, limit)
}
