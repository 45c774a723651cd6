package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/services"
)

// WindowHandler manages free-drink availability windows.
type WindowHandler struct {
	db *gorm.DB
}

// NewWindowHandler constructs WindowHandler.
func NewWindowHandler(db *gorm.DB) *WindowHandler {
	return &WindowHandler{db: db}
}

// ListWindows returns all windows for a venue.
func (h *WindowHandler) ListWindows(c *fiber.Ctx) error {
	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid venue id")
	}

	var windows []models.FreeDrinkWindow
	if err := h.db.Where("venue_id = ?", venueID).Find(&windows).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": windows})
}

type windowRequest struct {
	DrinkID   string `json:"drink_id"`
	Days      []int  `json:"days"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

func (r *windowRequest) validate() error {
	if len(r.Days) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "days must not be empty")
	}
	for _, d := range r.Days {
		if d < 1 || d > 7 {
			return fiber.NewError(fiber.StatusBadRequest, "days must be ISO weekdays 1..7")
		}
	}
	start, err := services.ParseClock(r.StartTime)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid start_time")
	}
	end, err := services.ParseClock(r.EndTime)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid end_time")
	}
	if start >= end {
		return fiber.NewError(fiber.StatusBadRequest, "start_time must be before end_time")
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unknown timezone")
		}
	}
	return nil
}

// CreateWindow adds an availability window to a venue.
func (h *WindowHandler) CreateWindow(c *fiber.Ctx) error {
	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid venue id")
	}

	var req windowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	var venue models.Venue
	if err := h.db.First(&venue, "id = ?", venueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "venue not found")
		}
		return err
	}

	window := models.FreeDrinkWindow{
		VenueID:   venueID,
		Days:      models.NewDaySet(req.Days...),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Timezone:  req.Timezone,
	}
	if window.Timezone == "" {
		window.Timezone = venue.Timezone
	}
	if req.DrinkID != "" {
		drinkID, err := uuid.Parse(req.DrinkID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid drink_id")
		}
		window.DrinkID = &drinkID
	}

	if err := h.db.Create(&window).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": window})
}

// UpdateWindow edits a window's days and hours. Window identity is immutable.
func (h *WindowHandler) UpdateWindow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("windowId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var window models.FreeDrinkWindow
	if err := h.db.First(&window, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "window not found")
		}
		return err
	}

	var req windowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	window.Days = models.NewDaySet(req.Days...)
	window.StartTime = req.StartTime
	window.EndTime = req.EndTime
	if req.Timezone != "" {
		window.Timezone = req.Timezone
	}

	if err := h.db.Save(&window).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": window})
}

// DeleteWindow removes a window.
func (h *WindowHandler) DeleteWindow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("windowId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.Delete(&models.FreeDrinkWindow{}, "id = ?", id).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSchedule returns the venue's windows collapsed into display ranges:
// consecutive weekdays with identical hours become one labeled group.
func (h *WindowHandler) GetSchedule(c *fiber.Ctx) error {
	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid venue id")
	}

	var windows []models.FreeDrinkWindow
	if err := h.db.Where("venue_id = ?", venueID).Find(&windows).Error; err != nil {
		return err
	}

	var hoursByDay [8]string
	for _, w := range windows {
		hours := w.StartTime + " – " + w.EndTime
		for _, d := range w.Days.Days() {
			if hoursByDay[d] == "" {
				hoursByDay[d] = hours
			} else if hoursByDay[d] != hours {
				hoursByDay[d] += ", " + hours
			}
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": services.GroupSchedule(hoursByDay)})
}
