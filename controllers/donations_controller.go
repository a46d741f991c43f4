package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	config "github.com/athar/donation-tracker-go/config"
	models "github.com/athar/donation-tracker-go/models"
	services "github.com/athar/donation-tracker-go/services"
	utils "github.com/athar/donation-tracker-go/utils"
)

// deleteReceipt is swappable in tests; rejected donations get their uploaded
// receipt cleaned up best-effort.
var deleteReceipt = utils.DeleteReceipt

func cleanupRejectedReceipt(d *models.Donation) {
	if d.Status != models.DonationRejected || d.ReceiptURL == "" {
		return
	}
	if err := deleteReceipt(d.ReceiptURL); err != nil {
		log.Printf("failed to delete receipt for donation %s: %v", d.ID.Hex(), err)
	}
}

// ---------------- CREATE (public submission) ----------------
func CreateDonation(cfg *config.Config, lifecycle *services.Lifecycle, notifier services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount        int64  `form:"amount" binding:"required"`
			Boxes         int64  `form:"boxes"`
			PaymentMethod string `form:"payment_method" binding:"required"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than 0"})
			return
		}

		// Receipt upload is the one external call whose failure fails the
		// submission: a donation without its payment evidence is worthless.
		fileHeader, err := c.FormFile("receipt")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "receipt screenshot is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open receipt"})
			return
		}
		receiptURL, err := utils.UploadReceipt(file, fileHeader)
		file.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "receipt upload failed",
				"details": err.Error(),
			})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		donation, err := lifecycle.Submit(ctx, input.Amount, input.Boxes, input.PaymentMethod, receiptURL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create donation"})
			return
		}

		// Channel alert is fire-and-forget; a send failure never fails the
		// already-recorded donation.
		if ref, err := notifier.NotifyDonation(ctx, donation); err != nil {
			log.Printf("telegram notification failed for donation %s: %v", donation.ID.Hex(), err)
		} else if ref.MessageID != 0 {
			if err := lifecycle.AttachTelegramMessage(ctx, donation.ID.Hex(), ref.ChatID, ref.MessageID); err != nil {
				log.Printf("failed to record telegram message for donation %s: %v", donation.ID.Hex(), err)
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      donation.ID.Hex(),
			"message": "donation submitted",
		})
	}
}

// ---------------- LIST ----------------
func ListDonations(lifecycle *services.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		donations, err := lifecycle.List(ctx, c.Query("status"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch donations"})
			return
		}

		if len(donations) == 0 {
			c.JSON(http.StatusOK, []models.Donation{})
			return
		}

		// --- Pick the most recently updated donation ---
		latest := donations[0]
		for _, d := range donations {
			if d.UpdatedAt.After(latest.UpdatedAt) {
				latest = d
			}
		}

		// --- Generate ETag from latest donation ---
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, donations)
	}
}

// ---------------- GET ----------------
func GetDonation(lifecycle *services.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		donation, err := lifecycle.Get(ctx, c.Param("id"))
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch donation"})
			return
		}

		etag := utils.GenerateETag(donation.ID, donation.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, donation)
	}
}

// ---------------- STATS (public live counter) ----------------
func DonationStats(cfg *config.Config, lifecycle *services.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Aggregates are recomputed from the full set on every read; nothing
		// is cached across requests.
		donations, err := lifecycle.List(ctx, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch donations"})
			return
		}

		c.JSON(http.StatusOK, services.Summarize(donations, cfg.BoxCost, time.Now()))
	}
}

// ---------------- REVIEW (dashboard entry point) ----------------
func ReviewDonation(lifecycle *services.Lifecycle, notifier services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Decision string `json:"decision" binding:"required,oneof=approve reject"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		reviewer := c.GetString("email")
		if reviewer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		donation, err := lifecycle.Review(ctx, c.Param("id"), input.Decision, reviewer)
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
			return
		case errors.Is(err, services.ErrAlreadyReviewed):
			// Benign: the other entry point got here first. No side effects
			// are re-applied.
			c.JSON(http.StatusConflict, gin.H{
				"error":  "donation already reviewed",
				"status": donation.Status,
			})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not review donation"})
			return
		}

		// If the channel alert for this donation exists, update it too.
		if donation.TelegramMessageID != 0 {
			ref := services.MessageRef{ChatID: donation.TelegramChatID, MessageID: donation.TelegramMessageID}
			if err := notifier.AnnounceReview(ctx, ref, donation); err != nil {
				log.Printf("failed to update telegram message for donation %s: %v", donation.ID.Hex(), err)
			}
		}
		cleanupRejectedReceipt(donation)

		c.JSON(http.StatusOK, donation)
	}
}

// ---------------- MANUAL ENTRY ----------------
func CreateManualDonation(lifecycle *services.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount int64 `json:"amount" binding:"required"`
			Boxes  int64 `json:"boxes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		operator := c.GetString("email")
		if operator == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		donation, err := lifecycle.AddManual(ctx, input.Amount, input.Boxes, operator)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, donation)
	}
}
