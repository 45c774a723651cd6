package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/services"
)

// StatsHandler serves the venue dashboard's free-drink stats panel.
type StatsHandler struct {
	db           *gorm.DB
	availability *services.AvailabilityService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(db *gorm.DB, availability *services.AvailabilityService) *StatsHandler {
	return &StatsHandler{db: db, availability: availability}
}

type statsRequest struct {
	VenueID string `json:"venue_id"`
}

// FreeDrinkStats reports current availability, cap usage and the governing
// window for a venue.
func (h *StatsHandler) FreeDrinkStats(c *fiber.Ctx) error {
	var req statsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		return respondServiceError(c, services.ValidationError("venue_id is required"))
	}

	var venue models.Venue
	if err := h.db.First(&venue, "id = ?", venueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondServiceError(c, services.ErrVenueNotFound)
		}
		return respondServiceError(c, err)
	}

	availability, err := h.availability.Evaluate(c.Context(), venue, uuid.Nil, uuid.Nil)
	if err != nil {
		return respondServiceError(c, err)
	}

	var activeDrinks []models.Drink
	if err := h.db.Where("venue_id = ? AND is_active = ?", venueID, true).
		Find(&activeDrinks).Error; err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":               true,
		"today_redemptions":     availability.CapStatus.UsedToday,
		"cap_usage_pct":         availability.CapStatus.UsagePct,
		"cap_status":            availability.CapStatus.Bucket,
		"active_free_drinks":    activeDrinks,
		"current_active_window": availability.ActiveWindow,
		"next_window":           availability.NextWindow,
		"next_window_starts_at": availability.NextStart,
		"caps":                  services.CapConfigFor(venue),
		"is_active_now":         availability.ActiveWindow != nil,
		"is_available":          availability.IsAvailable,
		"is_paused":             venue.IsPaused,
	})
}
