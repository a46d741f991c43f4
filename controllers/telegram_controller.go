package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	models "github.com/athar/donation-tracker-go/models"
	services "github.com/athar/donation-tracker-go/services"
)

type telegramUpdate struct {
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// TelegramWebhook handles button presses from the approval channel. Whatever
// happens inside, it answers HTTP 200: Telegram retries non-200 deliveries,
// and retries of an already-handled event must stay harmless.
func TelegramWebhook(lifecycle *services.Lifecycle, notifier services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok := gin.H{"ok": true}

		var update telegramUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			log.Printf("webhook: unreadable payload: %v", err)
			c.JSON(http.StatusOK, ok)
			return
		}
		cb := update.CallbackQuery
		if cb == nil {
			c.JSON(http.StatusOK, ok)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		action, donationID, err := services.ParseCallbackToken(cb.Data)
		if err != nil {
			log.Printf("webhook: malformed callback data %q", cb.Data)
			answer(ctx, notifier, cb.ID, "❌ خطأ في البيانات")
			c.JSON(http.StatusOK, ok)
			return
		}
		if action != services.DecisionApprove && action != services.DecisionReject {
			// Unknown actions are acknowledged as no-ops, not errors.
			log.Printf("webhook: unknown action %q", action)
			c.JSON(http.StatusOK, ok)
			return
		}

		donation, err := lifecycle.Review(ctx, donationID, action, models.ReviewerTelegram)
		switch {
		case errors.Is(err, services.ErrNotFound):
			answer(ctx, notifier, cb.ID, "❌ التبرع غير موجود")
			c.JSON(http.StatusOK, ok)
			return
		case errors.Is(err, services.ErrAlreadyReviewed):
			// Race loser: the transition already happened elsewhere. Do not
			// re-edit the message or re-announce the outcome.
			answer(ctx, notifier, cb.ID, "⚠️ تم معالجة هذا التبرع مسبقاً")
			c.JSON(http.StatusOK, ok)
			return
		case err != nil:
			log.Printf("webhook: review failed for %s: %v", donationID, err)
			answer(ctx, notifier, cb.ID, "❌ حدث خطأ، حاول مرة أخرى")
			c.JSON(http.StatusOK, ok)
			return
		}

		// Transition applied; everything from here on is best-effort.
		if cb.Message != nil {
			ref := services.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
			if err := notifier.AnnounceReview(ctx, ref, donation); err != nil {
				log.Printf("webhook: failed to edit message for %s: %v", donationID, err)
			}
		}

		text := "❌ تم رفض التبرع"
		if donation.Status == models.DonationApproved {
			text = "✅ تم قبول التبرع"
		}
		answer(ctx, notifier, cb.ID, text)
		cleanupRejectedReceipt(donation)

		c.JSON(http.StatusOK, ok)
	}
}

func answer(ctx context.Context, notifier services.Notifier, callbackID, text string) {
	if err := notifier.AnswerCallback(ctx, callbackID, text); err != nil {
		log.Printf("webhook: answer callback failed: %v", err)
	}
}
