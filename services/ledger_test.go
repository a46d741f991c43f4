package services

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/athar/donation-tracker-go/models"
)

type fakeInventoryStore struct {
	items       []models.InventoryItem
	txs         []models.StockTransaction
	productions int
}

func (f *fakeInventoryStore) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	out := make([]models.InventoryItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeInventoryStore) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	for i := range f.items {
		if f.items[i].ID.Hex() == id {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeInventoryStore) SeedItems(ctx context.Context, items []models.InventoryItem) error {
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeInventoryStore) RecordPurchase(ctx context.Context, tx *models.StockTransaction, setCost bool) error {
	for i := range f.items {
		if f.items[i].ID == tx.ItemID {
			f.items[i].CurrentStock += tx.Quantity
			if setCost {
				f.items[i].CostPerUnit = tx.CostPerUnit
			}
			f.txs = append(f.txs, *tx)
			return nil
		}
	}
	return ErrInvalidItem
}

// RecordProduction enforces the same guard the Mongo store does: nothing is
// applied unless every item can cover its deduction.
func (f *fakeInventoryStore) RecordProduction(ctx context.Context, txs []*models.StockTransaction) error {
	f.productions++
	for _, tx := range txs {
		for i := range f.items {
			if f.items[i].ID == tx.ItemID && f.items[i].CurrentStock < -tx.Quantity {
				return &InsufficientStockError{
					ItemID:    tx.ItemID.Hex(),
					ItemName:  tx.ItemName,
					Available: f.items[i].CurrentStock,
					Required:  -tx.Quantity,
				}
			}
		}
	}
	for _, tx := range txs {
		for i := range f.items {
			if f.items[i].ID == tx.ItemID {
				f.items[i].CurrentStock += tx.Quantity
			}
		}
		f.txs = append(f.txs, *tx)
	}
	return nil
}

func (f *fakeInventoryStore) RecordAdjustment(ctx context.Context, tx *models.StockTransaction) error {
	for i := range f.items {
		if f.items[i].ID == tx.ItemID {
			if f.items[i].CurrentStock+tx.Quantity < 0 {
				return &InsufficientStockError{
					ItemID:    tx.ItemID.Hex(),
					ItemName:  tx.ItemName,
					Available: f.items[i].CurrentStock,
					Required:  -tx.Quantity,
				}
			}
			f.items[i].CurrentStock += tx.Quantity
			f.txs = append(f.txs, *tx)
			return nil
		}
	}
	return ErrInvalidItem
}

func (f *fakeInventoryStore) SetUnitCost(ctx context.Context, id string, cost float64) error {
	for i := range f.items {
		if f.items[i].ID.Hex() == id {
			f.items[i].CostPerUnit = cost
			return nil
		}
	}
	return ErrInvalidItem
}

func (f *fakeInventoryStore) ListTransactions(ctx context.Context, limit int64) ([]models.StockTransaction, error) {
	out := make([]models.StockTransaction, len(f.txs))
	copy(out, f.txs)
	return out, nil
}

func item(name string, perBox, stock float64) models.InventoryItem {
	return models.InventoryItem{
		ID:             primitive.NewObjectID(),
		Name:           name,
		QuantityPerBox: perBox,
		CurrentStock:   stock,
	}
}

func TestPossibleBoxes_BindingConstraint(t *testing.T) {
	items := []models.InventoryItem{
		item("rice", 2, 100), // 50 boxes
		item("oil", 1, 30),   // 30 boxes
	}

	possible, limiting := PossibleBoxes(items)
	if possible != 30 {
		t.Fatalf("possible boxes = %d, want 30", possible)
	}
	if limiting == nil || limiting.Name != "oil" {
		t.Fatalf("limiting item = %v, want oil", limiting)
	}
}

func TestPossibleBoxes_TieBreaksOnFirstItem(t *testing.T) {
	items := []models.InventoryItem{
		item("rice", 2, 60), // 30 boxes
		item("oil", 1, 30),  // 30 boxes
	}

	_, limiting := PossibleBoxes(items)
	if limiting == nil || limiting.Name != "rice" {
		t.Fatalf("tie should go to the first item in creation order, got %v", limiting)
	}
}

func TestPossibleBoxes_EmptyCatalog(t *testing.T) {
	possible, limiting := PossibleBoxes(nil)
	if possible != 0 || limiting != nil {
		t.Fatalf("empty catalog should yield 0 and no limiting item, got %d, %v", possible, limiting)
	}
}

func TestAddStock_RecordsTransactionAndCost(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 10)}}
	store.items[0].CostPerUnit = 18
	ledger := NewLedger(store)
	id := store.items[0].ID.Hex()

	// costPerUnit = 0 keeps the previous unit cost.
	if _, err := ledger.AddStock(context.Background(), id, 5, 0, "", "", "admin@athar.org"); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if store.items[0].CostPerUnit != 18 {
		t.Fatalf("zero cost overwrote unit cost: %f", store.items[0].CostPerUnit)
	}
	if store.items[0].CurrentStock != 15 {
		t.Fatalf("stock = %f, want 15", store.items[0].CurrentStock)
	}

	// A positive costPerUnit overwrites it.
	tx, err := ledger.AddStock(context.Background(), id, 4, 25, "السوق الكبير", "", "admin@athar.org")
	if err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if store.items[0].CostPerUnit != 25 {
		t.Fatalf("unit cost = %f, want 25", store.items[0].CostPerUnit)
	}
	if tx.TotalCost != 100 {
		t.Fatalf("total cost = %f, want 100", tx.TotalCost)
	}
	if tx.Type != models.TxPurchase {
		t.Fatalf("transaction type = %q, want purchase", tx.Type)
	}
}

func TestAddStock_Validation(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 10)}}
	ledger := NewLedger(store)

	if _, err := ledger.AddStock(context.Background(), store.items[0].ID.Hex(), 0, 10, "", "", "x"); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
	_, err := ledger.AddStock(context.Background(), primitive.NewObjectID().Hex(), 5, 10, "", "", "x")
	if !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestProduceBoxes_DeductsEveryItem(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{
		item("rice", 2, 100),
		item("oil", 1, 30),
	}}
	ledger := NewLedger(store)

	txs, err := ledger.ProduceBoxes(context.Background(), 10, "admin@athar.org")
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected one usage transaction per item, got %d", len(txs))
	}
	if store.items[0].CurrentStock != 80 {
		t.Fatalf("rice stock = %f, want 80", store.items[0].CurrentStock)
	}
	if store.items[1].CurrentStock != 20 {
		t.Fatalf("oil stock = %f, want 20", store.items[1].CurrentStock)
	}
	for _, tx := range txs {
		if tx.Type != models.TxUsage {
			t.Fatalf("transaction type = %q, want usage", tx.Type)
		}
		if tx.BoxesMade != 10 {
			t.Fatalf("boxes made = %d, want 10", tx.BoxesMade)
		}
		if tx.Quantity >= 0 {
			t.Fatalf("usage quantity must be negative, got %f", tx.Quantity)
		}
	}
}

func TestProduceBoxes_InsufficientStockMutatesNothing(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{
		item("rice", 2, 100),
		item("oil", 1, 5),
	}}
	ledger := NewLedger(store)

	_, err := ledger.ProduceBoxes(context.Background(), 10, "admin@athar.org")
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.ItemName != "oil" {
		t.Fatalf("offending item = %q, want oil", insufficient.ItemName)
	}
	if insufficient.Available != 5 || insufficient.Required != 10 {
		t.Fatalf("available/required = %f/%f, want 5/10", insufficient.Available, insufficient.Required)
	}

	// Preflight failed, so the store was never asked to write anything.
	if store.productions != 0 {
		t.Fatalf("store production called despite failed preflight")
	}
	if store.items[0].CurrentStock != 100 || store.items[1].CurrentStock != 5 {
		t.Fatalf("stock mutated on failed production")
	}
	if len(store.txs) != 0 {
		t.Fatalf("transactions recorded on failed production")
	}
}

func TestProduceBoxes_Validation(t *testing.T) {
	ledger := NewLedger(&fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 100)}})
	if _, err := ledger.ProduceBoxes(context.Background(), 0, "x"); err == nil {
		t.Fatalf("expected error for zero count")
	}
}

func TestAdjustStock_RecordsSignedCorrection(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 10)}}
	ledger := NewLedger(store)
	id := store.items[0].ID.Hex()

	tx, err := ledger.AdjustStock(context.Background(), id, -2.5, "تالف أثناء التخزين", "admin@athar.org")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if tx.Type != models.TxAdjustment {
		t.Fatalf("transaction type = %q, want adjustment", tx.Type)
	}
	if store.items[0].CurrentStock != 7.5 {
		t.Fatalf("stock = %f, want 7.5", store.items[0].CurrentStock)
	}
	if len(store.txs) != 1 || store.txs[0].Quantity != -2.5 {
		t.Fatalf("expected one adjustment transaction with delta -2.5, got %v", store.txs)
	}

	if _, err := ledger.AdjustStock(context.Background(), id, 4, "جرد", "admin@athar.org"); err != nil {
		t.Fatalf("positive adjust: %v", err)
	}
	if store.items[0].CurrentStock != 11.5 {
		t.Fatalf("stock = %f, want 11.5", store.items[0].CurrentStock)
	}
}

func TestAdjustStock_CannotGoNegative(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 3)}}
	ledger := NewLedger(store)

	_, err := ledger.AdjustStock(context.Background(), store.items[0].ID.Hex(), -5, "", "admin@athar.org")
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if store.items[0].CurrentStock != 3 || len(store.txs) != 0 {
		t.Fatalf("failed adjustment mutated state")
	}
}

func TestAdjustStock_Validation(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 3)}}
	ledger := NewLedger(store)

	if _, err := ledger.AdjustStock(context.Background(), store.items[0].ID.Hex(), 0, "", "x"); err == nil {
		t.Fatalf("expected error for zero delta")
	}
	_, err := ledger.AdjustStock(context.Background(), primitive.NewObjectID().Hex(), 1, "", "x")
	if !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestSetUnitCost_NoTransactionRecorded(t *testing.T) {
	store := &fakeInventoryStore{items: []models.InventoryItem{item("rice", 2, 10)}}
	ledger := NewLedger(store)

	if err := ledger.SetUnitCost(context.Background(), store.items[0].ID.Hex(), 22.5); err != nil {
		t.Fatalf("set unit cost: %v", err)
	}
	if store.items[0].CostPerUnit != 22.5 {
		t.Fatalf("unit cost = %f, want 22.5", store.items[0].CostPerUnit)
	}
	if len(store.txs) != 0 {
		t.Fatalf("cost correction must not record a stock transaction")
	}

	err := ledger.SetUnitCost(context.Background(), primitive.NewObjectID().Hex(), 1)
	if !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestBootstrap_SeedsOnlyWhenEmpty(t *testing.T) {
	store := &fakeInventoryStore{}
	ledger := NewLedger(store)

	if err := ledger.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(store.items) != len(defaultCatalog) {
		t.Fatalf("seeded %d items, want %d", len(store.items), len(defaultCatalog))
	}
	for _, it := range store.items {
		if it.CurrentStock != 0 {
			t.Fatalf("seeded item %s with nonzero stock", it.Name)
		}
		if it.MinStockAlert != it.QuantityPerBox*50 {
			t.Fatalf("seeded item %s with alert %f, want %f", it.Name, it.MinStockAlert, it.QuantityPerBox*50)
		}
	}

	// Second call must not reseed.
	if err := ledger.Bootstrap(context.Background()); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if len(store.items) != len(defaultCatalog) {
		t.Fatalf("bootstrap reseeded an initialized catalog")
	}
}
