package routes

import (
	"github.com/gin-gonic/gin"

	config "github.com/athar/donation-tracker-go/config"
	controllers "github.com/athar/donation-tracker-go/controllers"
	middleware "github.com/athar/donation-tracker-go/middleware"
	repository "github.com/athar/donation-tracker-go/repository"
	services "github.com/athar/donation-tracker-go/services"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	lifecycle := services.NewLifecycle(repository.NewDonationRepository(cfg))
	ledger := services.NewLedger(repository.NewInventoryRepository(cfg))
	bot := services.NewTelegramBot(cfg.TelegramBotToken, cfg.TelegramChatID)

	// public
	r.POST("/auth/login", controllers.Login(cfg))
	r.POST("/auth/refresh", controllers.RefreshToken(cfg))

	r.POST("/donations", controllers.CreateDonation(cfg, lifecycle, bot))
	r.GET("/donations/stats", controllers.DonationStats(cfg, lifecycle))

	// messaging-channel callback
	r.POST("/telegram/webhook", controllers.TelegramWebhook(lifecycle, bot))

	// protected
	auth := middleware.AuthMiddleware(cfg)

	donations := r.Group("/donations")
	donations.Use(auth)
	{
		donations.GET("", controllers.ListDonations(lifecycle))
		donations.GET("/:id", controllers.GetDonation(lifecycle))
		donations.POST("/manual", controllers.CreateManualDonation(lifecycle))
		donations.POST("/:id/review", controllers.ReviewDonation(lifecycle, bot))
	}

	inventory := r.Group("/inventory")
	inventory.Use(auth)
	{
		inventory.GET("/items", controllers.ListInventoryItems(ledger))
		inventory.GET("/stats", controllers.InventoryStats(ledger))
		inventory.POST("/items/:id/stock", controllers.AddStock(ledger))
		inventory.POST("/items/:id/adjust", controllers.AdjustStock(ledger))
		inventory.PATCH("/items/:id/cost", controllers.UpdateItemCost(ledger))
		inventory.POST("/produce", controllers.ProduceBoxes(ledger))
		inventory.GET("/transactions", controllers.ListStockTransactions(ledger))
	}
}
