package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/models"
)

// DrinkHandler manages a venue's free-drink offers.
type DrinkHandler struct {
	db *gorm.DB
}

// NewDrinkHandler constructs DrinkHandler.
func NewDrinkHandler(db *gorm.DB) *DrinkHandler {
	return &DrinkHandler{db: db}
}

// ListDrinks returns all drinks for a venue.
func (h *DrinkHandler) ListDrinks(c *fiber.Ctx) error {
	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid venue id")
	}

	var drinks []models.Drink
	if err := h.db.Where("venue_id = ?", venueID).Find(&drinks).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": drinks})
}

type drinkRequest struct {
	Name     string          `json:"name"`
	Value    decimal.Decimal `json:"value"`
	IsActive *bool           `json:"is_active"`
}

// CreateDrink adds a drink offer to a venue.
func (h *DrinkHandler) CreateDrink(c *fiber.Ctx) error {
	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid venue id")
	}

	var req drinkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if req.Value.IsNegative() {
		return fiber.NewError(fiber.StatusBadRequest, "value must not be negative")
	}

	drink := models.Drink{
		VenueID:  venueID,
		Name:     req.Name,
		Value:    req.Value,
		IsActive: true,
	}
	if req.IsActive != nil {
		drink.IsActive = *req.IsActive
	}

	if err := h.db.Create(&drink).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": drink})
}

// UpdateDrink edits a drink offer.
func (h *DrinkHandler) UpdateDrink(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("drinkId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var drink models.Drink
	if err := h.db.First(&drink, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "drink not found")
		}
		return err
	}

	var req drinkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Value.IsNegative() {
		return fiber.NewError(fiber.StatusBadRequest, "value must not be negative")
	}

	if req.Name != "" {
		drink.Name = req.Name
	}
	if !req.Value.IsZero() {
		drink.Value = req.Value
	}
	if req.IsActive != nil {
		drink.IsActive = *req.IsActive
	}

	if err := h.db.Save(&drink).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": drink})
}

// DeleteDrink removes a drink offer.
func (h *DrinkHandler) DeleteDrink(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("drinkId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.Delete(&models.Drink{}, "id = ?", id).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
