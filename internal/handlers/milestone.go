package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/middleware"
	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/services"
)

// MilestoneHandler exposes milestone detection and the admin alert surface.
type MilestoneHandler struct {
	db         *gorm.DB
	milestones *services.MilestoneService
	notifier   *services.TelegramService
}

// NewMilestoneHandler constructs MilestoneHandler.
func NewMilestoneHandler(db *gorm.DB, milestones *services.MilestoneService, notifier *services.TelegramService) *MilestoneHandler {
	return &MilestoneHandler{db: db, milestones: milestones, notifier: notifier}
}

type detectRequest struct {
	UserID  string `json:"user_id"`
	VenueID string `json:"venue_id"`
}

// Detect runs milestone detection. With both user_id and venue_id it
// targets one pair; otherwise it scans pairs touched by recent redemptions
// (the cron path). Detection is idempotent either way.
func (h *MilestoneHandler) Detect(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.UserID != "" && req.VenueID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return respondServiceError(c, services.ValidationError("invalid user_id"))
		}
		venueID, err := uuid.Parse(req.VenueID)
		if err != nil {
			return respondServiceError(c, services.ValidationError("invalid venue_id"))
		}
		created, err := h.milestones.DetectForPair(c.Context(), userID, venueID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "new_milestones": created})
	}

	created, err := h.milestones.ScanRecent(c.Context(), 24*time.Hour)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "new_milestones": created})
}

// ListPending returns milestones awaiting admin attention.
func (h *MilestoneHandler) ListPending(c *fiber.Ctx) error {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.db.Where("admin_notified = ? AND admin_dismissed = ?", false, false)
	if !actor.IsAdmin() {
		query = query.Where("venue_id IN ?", actor.VenueIDs)
	}

	var pending []models.LoyaltyMilestone
	if err := query.Order("created_at desc").Find(&pending).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": pending})
}

// Dismiss marks a milestone as handled without sending a reward.
func (h *MilestoneHandler) Dismiss(c *fiber.Ctx) error {
	milestone, err := h.loadManagedMilestone(c)
	if err != nil {
		return err
	}

	if err := h.db.Model(milestone).Updates(map[string]any{
		"admin_dismissed": true,
		"admin_notified":  true,
	}).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// SendReward marks the milestone's reward as sent and fires the notifier.
// Notification failure is logged, never retried.
func (h *MilestoneHandler) SendReward(c *fiber.Ctx) error {
	milestone, err := h.loadManagedMilestone(c)
	if err != nil {
		return err
	}

	if milestone.RewardSent {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "INVALID_STATE",
			"message": "reward already sent",
		})
	}

	if err := h.db.Model(milestone).Updates(map[string]any{
		"reward_sent":    true,
		"admin_notified": true,
	}).Error; err != nil {
		return err
	}

	if h.notifier != nil {
		var venue models.Venue
		var user models.User
		_ = h.db.First(&venue, "id = ?", milestone.VenueID).Error
		_ = h.db.First(&user, "id = ?", milestone.UserID).Error
		if err := h.notifier.NotifyRewardSent(services.RewardNotification{
			VenueName:     venue.Name,
			UserName:      user.DisplayName,
			MilestoneType: string(milestone.MilestoneType),
			TotalSpend:    milestone.TotalSpend,
		}); err != nil {
			log.Printf("[Milestones] Reward notification failed for %s: %v", milestone.ID, err)
		}
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *MilestoneHandler) loadManagedMilestone(c *fiber.Ctx) (*models.LoyaltyMilestone, error) {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var milestone models.LoyaltyMilestone
	if err := h.db.First(&milestone, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "milestone not found")
		}
		return nil, err
	}

	if !actor.ManagesVenue(milestone.VenueID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "venue not managed by actor")
	}
	return &milestone, nil
}
