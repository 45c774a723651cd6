package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/clock"
	"github.com/example/comegetit/internal/config"
	"github.com/example/comegetit/internal/handlers"
	"github.com/example/comegetit/internal/middleware"
	"github.com/example/comegetit/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	clk := clock.NewSystem()
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	thresholds := services.CapThresholds{
		Full:        cfg.CapThresholdFull,
		AlmostFull:  cfg.CapThresholdAlmostFull,
		Approaching: cfg.CapThresholdApproaching,
	}
	availabilityService := services.NewAvailabilityService(db, clk, thresholds)
	redemptionService := services.NewRedemptionService(db, clk, cfg.VoidWindow, cfg.VoidRateLimit, cfg.VoidRatePeriod, cfg.QRTokenTTL)
	milestoneService := services.NewMilestoneService(db, clk, telegramService)

	authHandler := handlers.NewAuthHandler(db, cfg)
	venueHandler := handlers.NewVenueHandler(db)
	windowHandler := handlers.NewWindowHandler(db)
	drinkHandler := handlers.NewDrinkHandler(db)
	statsHandler := handlers.NewStatsHandler(db, availabilityService)
	redemptionHandler := handlers.NewRedemptionHandler(db, redemptionService, availabilityService, milestoneService)
	milestoneHandler := handlers.NewMilestoneHandler(db, milestoneService, telegramService)

	api := app.Group("/api")

	// Staff auth
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Dashboard stats (venue-scoped data, read by the admin UI)
	api.Post("/free-drink-stats", statsHandler.FreeDrinkStats)

	// POS / consumer-app bridge (API key)
	pos := api.Group("", middleware.APIKeyMiddleware(cfg.POSAPIKey, cfg.POSRatePerMinute))
	pos.Post("/validate-qr", redemptionHandler.ValidateQR)
	pos.Post("/qr-tokens", redemptionHandler.IssueToken)
	pos.Post("/redemptions/confirm", redemptionHandler.Confirm)

	// Cron / event triggered
	api.Post("/detect-milestones", milestoneHandler.Detect)

	// Protected dashboard routes
	protected := api.Group("", middleware.AuthMiddleware(db, cfg))

	protected.Post("/void-redemption", redemptionHandler.Void)

	venues := protected.Group("/venues")
	venues.Get("/", venueHandler.ListVenues)
	venues.Post("/", venueHandler.CreateVenue)
	venues.Get("/:id", venueHandler.GetVenue)
	venues.Put("/:id", venueHandler.UpdateVenue)
	venues.Post("/:id/pause", venueHandler.PauseVenue)
	venues.Post("/:id/resume", venueHandler.ResumeVenue)

	venues.Get("/:id/windows", windowHandler.ListWindows)
	venues.Post("/:id/windows", windowHandler.CreateWindow)
	venues.Put("/:id/windows/:windowId", windowHandler.UpdateWindow)
	venues.Delete("/:id/windows/:windowId", windowHandler.DeleteWindow)
	venues.Get("/:id/schedule", windowHandler.GetSchedule)

	venues.Get("/:id/drinks", drinkHandler.ListDrinks)
	venues.Post("/:id/drinks", drinkHandler.CreateDrink)
	venues.Put("/:id/drinks/:drinkId", drinkHandler.UpdateDrink)
	venues.Delete("/:id/drinks/:drinkId", drinkHandler.DeleteDrink)

	venues.Get("/:id/redemptions", redemptionHandler.ListRedemptions)

	milestones := protected.Group("/milestones")
	milestones.Get("/pending", milestoneHandler.ListPending)
	milestones.Post("/:id/dismiss", milestoneHandler.Dismiss)
	milestones.Post("/:id/send-reward", milestoneHandler.SendReward)
}
