package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/middleware"
	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/services"
	"github.com/example/comegetit/internal/utils"
)

// RedemptionHandler manages the redemption lifecycle endpoints.
type RedemptionHandler struct {
	db           *gorm.DB
	redemptions  *services.RedemptionService
	availability *services.AvailabilityService
	milestones   *services.MilestoneService
}

// NewRedemptionHandler constructs RedemptionHandler.
func NewRedemptionHandler(db *gorm.DB, redemptions *services.RedemptionService, availability *services.AvailabilityService, milestones *services.MilestoneService) *RedemptionHandler {
	return &RedemptionHandler{
		db:           db,
		redemptions:  redemptions,
		availability: availability,
		milestones:   milestones,
	}
}

type issueTokenRequest struct {
	UserID string `json:"user_id"`
}

// IssueToken mints a one-time QR token for a consumer-app user. Called by
// the trusted app bridge (API-key authenticated); the raw token is returned
// exactly once.
func (h *RedemptionHandler) IssueToken(c *fiber.Ctx) error {
	var req issueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return respondServiceError(c, services.ValidationError("user_id is required"))
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return respondServiceError(c, err)
	}

	token, err := h.redemptions.IssueToken(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": token})
}

type validateQRRequest struct {
	Token   string `json:"token"`
	VenueID string `json:"venue_id"`
}

// ValidateQR consumes a scanned QR token at a POS. Exactly one scan of a
// given token can succeed.
func (h *RedemptionHandler) ValidateQR(c *fiber.Ctx) error {
	var req validateQRRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return respondServiceError(c, services.ValidationError("token is required"))
	}
	if _, err := uuid.Parse(req.VenueID); err != nil {
		return respondServiceError(c, services.ValidationError("venue_id is required"))
	}

	validation, err := h.redemptions.ValidateAndConsumeToken(c.Context(), req.Token)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"valid":          true,
		"user_id":        validation.UserID,
		"user_name":      validation.UserName,
		"points_balance": validation.PointsBalance,
		"validated_at":   validation.ValidatedAt,
	})
}

type confirmRequest struct {
	UserID  string          `json:"user_id"`
	VenueID string          `json:"venue_id"`
	DrinkID string          `json:"drink_id"`
	Drink   string          `json:"drink"`
	Value   decimal.Decimal `json:"value"`
}

// Confirm records a successful redemption after QR validation, gated by the
// availability evaluator, then runs milestone detection for the pair.
func (h *RedemptionHandler) Confirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return respondServiceError(c, services.ValidationError("user_id is required"))
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

	var drinkID *uuid.UUID
	drinkName := req.Drink
	value := req.Value
	if req.DrinkID != "" {
		id, err := uuid.Parse(req.DrinkID)
		if err != nil {
			return respondServiceError(c, services.ValidationError("invalid drink_id"))
		}
		var drink models.Drink
		if err := h.db.First(&drink, "id = ? AND venue_id = ?", id, venueID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "drink not found")
			}
			return respondServiceError(c, err)
		}
		drinkID = &drink.ID
		if drinkName == "" {
			drinkName = drink.Name
		}
		if value.IsZero() {
			value = drink.Value
		}
	}

	availability, err := h.availability.Evaluate(c.Context(), venue, valueOrNil(drinkID), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !availability.IsAvailable {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":        false,
			"error":          "NOT_AVAILABLE",
			"reason":         availability.Reason,
			"alt_offer_text": availability.AltOfferText,
			"next_window":    availability.NextWindow,
		})
	}

	redemption, err := h.redemptions.Confirm(c.Context(), userID, venueID, drinkID, drinkName, value)
	if err != nil {
		return respondServiceError(c, err)
	}

	milestones, err := h.milestones.OnRedemptionSuccess(c.Context(), userID, venueID)
	if err != nil {
		log.Printf("[Redemption] Milestone detection failed for user %s venue %s: %v", userID, venueID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"data":           redemption,
		"new_milestones": milestones,
	})
}

type voidRequest struct {
	RedemptionID string `json:"redemption_id"`
	Reason       string `json:"reason"`
}

// Void administratively reverses a successful redemption.
func (h *RedemptionHandler) Void(c *fiber.Ctx) error {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req voidRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	redemptionID, err := uuid.Parse(req.RedemptionID)
	if err != nil {
		return respondServiceError(c, services.ValidationError("redemption_id is required"))
	}

	redemption, err := h.redemptions.Void(c.Context(), redemptionID, req.Reason, actor)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"redemption_id": redemption.ID,
		"voided_at":     redemption.Metadata.VoidedAt,
	})
}

// ListRedemptions returns a venue's redemptions with optional status filter.
func (h *RedemptionHandler) ListRedemptions(c *fiber.Ctx) error {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid venue id")
	}
	if !actor.ManagesVenue(venueID) {
		return fiber.NewError(fiber.StatusForbidden, "venue not managed by actor")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Redemption{}).Where("venue_id = ?", venueID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var redemptions []models.Redemption
	if err := query.Order("redeemed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&redemptions).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    redemptions,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

func valueOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
