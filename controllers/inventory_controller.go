package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	services "github.com/athar/donation-tracker-go/services"
)

// ---------------- LIST ITEMS ----------------
func ListInventoryItems(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// First visit on a fresh deployment seeds the default catalog.
		if err := ledger.Bootstrap(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not initialize inventory"})
			return
		}

		items, err := ledger.Items(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch inventory"})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// ---------------- STATS ----------------
func InventoryStats(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stats, err := ledger.Stats(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute inventory stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// ---------------- ADD STOCK (purchase) ----------------
func AddStock(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Quantity    float64 `json:"quantity" binding:"required"`
			CostPerUnit float64 `json:"cost_per_unit"`
			Supplier    string  `json:"supplier"`
			Notes       string  `json:"notes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		actor := c.GetString("email")
		if actor == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tx, err := ledger.AddStock(ctx, c.Param("id"), input.Quantity, input.CostPerUnit, input.Supplier, input.Notes, actor)
		switch {
		case errors.Is(err, services.ErrInvalidItem):
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory item not found"})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, tx)
	}
}

// ---------------- PRODUCE BOXES (usage) ----------------
func ProduceBoxes(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Boxes int64 `json:"boxes" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		actor := c.GetString("email")
		if actor == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		txs, err := ledger.ProduceBoxes(ctx, input.Boxes, actor)
		var insufficient *services.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			// Nothing was deducted; the caller must retry with a valid count.
			c.JSON(http.StatusConflict, gin.H{
				"error":     "insufficient stock",
				"item_id":   insufficient.ItemID,
				"item_name": insufficient.ItemName,
				"available": insufficient.Available,
				"required":  insufficient.Required,
			})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":      "boxes produced",
			"boxes":        input.Boxes,
			"transactions": txs,
		})
	}
}

// ---------------- ADJUST STOCK (correction) ----------------
func AdjustStock(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Delta float64 `json:"delta" binding:"required"`
			Notes string  `json:"notes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		actor := c.GetString("email")
		if actor == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tx, err := ledger.AdjustStock(ctx, c.Param("id"), input.Delta, input.Notes, actor)
		var insufficient *services.InsufficientStockError
		switch {
		case errors.Is(err, services.ErrInvalidItem):
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory item not found"})
			return
		case errors.As(err, &insufficient):
			c.JSON(http.StatusConflict, gin.H{
				"error":     "insufficient stock",
				"item_id":   insufficient.ItemID,
				"item_name": insufficient.ItemName,
				"available": insufficient.Available,
				"required":  insufficient.Required,
			})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, tx)
	}
}

// ---------------- UPDATE ITEM COST ----------------
func UpdateItemCost(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			CostPerUnit float64 `json:"cost_per_unit"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := ledger.SetUnitCost(ctx, c.Param("id"), input.CostPerUnit)
		switch {
		case errors.Is(err, services.ErrInvalidItem):
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory item not found"})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "item cost updated", "id": c.Param("id")})
	}
}

// ---------------- LIST TRANSACTIONS ----------------
func ListStockTransactions(ledger *services.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		txs, err := ledger.Transactions(ctx, 200)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch transactions"})
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}
