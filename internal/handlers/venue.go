package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/middleware"
	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/utils"
)

// VenueHandler manages venue records and cap configuration.
type VenueHandler struct {
	db *gorm.DB
}

// NewVenueHandler constructs VenueHandler.
func NewVenueHandler(db *gorm.DB) *VenueHandler {
	return &VenueHandler{db: db}
}

// ListVenues returns venues visible to the actor; admins see everything.
func (h *VenueHandler) ListVenues(c *fiber.Ctx) error {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Venue{})
	if !actor.IsAdmin() {
		query = query.Where("id IN ?", actor.VenueIDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var venues []models.Venue
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&venues).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    venues,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type venueRequest struct {
	Name            string  `json:"name"`
	AddressLine     string  `json:"address_line"`
	City            string  `json:"city"`
	Timezone        string  `json:"timezone"`
	OpeningHours    string  `json:"opening_hours"`
	DailyCap        *int    `json:"daily_cap"`
	HourlyCap       *int    `json:"hourly_cap"`
	PerUserDailyCap *int    `json:"per_user_daily_cap"`
	OnExhaust       *string `json:"on_exhaust"`
	AltOfferText    *string `json:"alt_offer_text"`
}

func (r *venueRequest) validate() error {
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unknown timezone")
		}
	}
	if r.OnExhaust != nil && !models.ExhaustPolicy(*r.OnExhaust).Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown on_exhaust policy")
	}
	if r.DailyCap != nil && *r.DailyCap < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "daily_cap must not be negative")
	}
	if r.HourlyCap != nil && *r.HourlyCap < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "hourly_cap must not be negative")
	}
	if r.PerUserDailyCap != nil && *r.PerUserDailyCap < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "per_user_daily_cap must not be negative")
	}
	return nil
}

func (r *venueRequest) apply(v *models.Venue) {
	if r.Name != "" {
		v.Name = r.Name
	}
	if r.AddressLine != "" {
		v.AddressLine = r.AddressLine
	}
	if r.City != "" {
		v.City = r.City
	}
	if r.Timezone != "" {
		v.Timezone = r.Timezone
	}
	if r.OpeningHours != "" {
		v.OpeningHours = r.OpeningHours
	}
	if r.DailyCap != nil {
		v.DailyCap = *r.DailyCap
	}
	if r.HourlyCap != nil {
		v.HourlyCap = *r.HourlyCap
	}
	if r.PerUserDailyCap != nil {
		v.PerUserDailyCap = *r.PerUserDailyCap
	}
	if r.OnExhaust != nil {
		v.OnExhaust = models.ExhaustPolicy(*r.OnExhaust)
	}
	if r.AltOfferText != nil {
		v.AltOfferText = *r.AltOfferText
	}
}

// CreateVenue registers a new venue. Admin only; owners get assigned after.
func (h *VenueHandler) CreateVenue(c *fiber.Ctx) error {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	if !actor.IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "only admins can create venues")
	}

	var req venueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if err := req.validate(); err != nil {
		return err
	}

	venue := models.Venue{OnExhaust: models.ExhaustDoNothing}
	req.apply(&venue)

	if err := h.db.Create(&venue).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": venue})
}

// GetVenue returns a single venue with its drinks and windows.
func (h *VenueHandler) GetVenue(c *fiber.Ctx) error {
	venue, err := h.loadManagedVenue(c)
	if err != nil {
		return err
	}

	if err := h.db.Preload("Drinks").Preload("Windows").
		First(venue, "id = ?", venue.ID).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": venue})
}

// UpdateVenue edits venue fields and cap configuration.
func (h *VenueHandler) UpdateVenue(c *fiber.Ctx) error {
	venue, err := h.loadManagedVenue(c)
	if err != nil {
		return err
	}

	var req venueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	req.apply(venue)
	if err := h.db.Save(venue).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": venue})
}

// PauseVenue stops all availability for the venue.
func (h *VenueHandler) PauseVenue(c *fiber.Ctx) error {
	return h.setPaused(c, true)
}

// ResumeVenue re-enables availability for the venue.
func (h *VenueHandler) ResumeVenue(c *fiber.Ctx) error {
	return h.setPaused(c, false)
}

func (h *VenueHandler) setPaused(c *fiber.Ctx, paused bool) error {
	venue, err := h.loadManagedVenue(c)
	if err != nil {
		return err
	}

	if err := h.db.Model(venue).Update("is_paused", paused).Error; err != nil {
		return err
	}
	venue.IsPaused = paused
	return c.JSON(fiber.Map{"success": true, "data": venue})
}

// loadManagedVenue parses :id, loads the venue and checks the actor may
// manage it.
func (h *VenueHandler) loadManagedVenue(c *fiber.Ctx) (*models.Venue, error) {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var venue models.Venue
	if err := h.db.First(&venue, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "venue not found")
		}
		return nil, err
	}

	if !actor.ManagesVenue(venue.ID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "venue not managed by actor")
	}
	return &venue, nil
}
