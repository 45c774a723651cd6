package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/clock"
	"github.com/example/comegetit/internal/models"
)

// Unavailability reasons reported by Evaluate.
const (
	ReasonVenuePaused  = "venue_paused"
	ReasonOutsideHours = "outside_hours"
	ReasonCapExhausted = "cap_exhausted"
)

// Availability is the answer to "is this drink redeemable right now".
type Availability struct {
	IsAvailable  bool                    `json:"is_available"`
	Reason       string                  `json:"reason,omitempty"`
	ActiveWindow *models.FreeDrinkWindow `json:"active_window,omitempty"`
	NextWindow   *models.FreeDrinkWindow `json:"next_window,omitempty"`
	NextStart    *time.Time              `json:"next_start,omitempty"`
	AltOfferText string                  `json:"alt_offer_text,omitempty"`
	CapStatus    CapStatus               `json:"cap_status"`
}

// AvailabilityService composes the schedule model, venue pause state and
// cap accounting.
type AvailabilityService struct {
	db         *gorm.DB
	clk        clock.Clock
	thresholds CapThresholds
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(db *gorm.DB, clk clock.Clock, thresholds CapThresholds) *AvailabilityService {
	return &AvailabilityService{db: db, clk: clk, thresholds: thresholds}
}

// Evaluate decides whether a free drink is redeemable at the venue right
// now. drinkID narrows the window set to drink-scoped windows plus
// venue-wide ones; userID (optional) enables the per-user daily cap check.
func (s *AvailabilityService) Evaluate(ctx context.Context, venue models.Venue, drinkID, userID uuid.UUID) (Availability, error) {
	now := s.clk.Now()

	windows, err := s.loadWindows(ctx, venue.ID, drinkID)
	if err != nil {
		return Availability{}, fmt.Errorf("load windows: %w", err)
	}

	loc, err := venue.Location()
	if err != nil {
		return Availability{}, fmt.Errorf("venue %s timezone: %w", venue.ID, err)
	}
	counts, err := CountRedemptions(ctx, s.db, venue.ID, userID, now, loc)
	if err != nil {
		return Availability{}, fmt.Errorf("count redemptions: %w", err)
	}
	cfg := CapConfigFor(venue)
	capStatus := ComputeCapStatus(cfg, counts, s.thresholds)

	if venue.IsPaused {
		next, start := NextWindow(windows, now)
		out := Availability{IsAvailable: false, Reason: ReasonVenuePaused, NextWindow: next, CapStatus: capStatus}
		if next != nil {
			out.NextStart = &start
		}
		return out, nil
	}

	active, isActive := AnyWindowActiveAt(windows, now)
	if !isActive {
		next, start := NextWindow(windows, now)
		out := Availability{IsAvailable: false, Reason: ReasonOutsideHours, NextWindow: next, CapStatus: capStatus}
		if next != nil {
			out.NextStart = &start
		}
		return out, nil
	}

	out := Availability{ActiveWindow: active, CapStatus: capStatus}

	if !capStatus.IsExhausted {
		out.IsAvailable = true
		return out, nil
	}

	// Exhaustion policy dispatch. do_nothing deliberately keeps the drink
	// redeemable; the cap only drives dashboard status.
	switch cfg.OnExhaust {
	case models.ExhaustClose:
		out.IsAvailable = false
		out.Reason = ReasonCapExhausted
	case models.ExhaustShowAltOffer:
		out.IsAvailable = false
		out.Reason = ReasonCapExhausted
		out.AltOfferText = cfg.AltOfferText
	case models.ExhaustDoNothing:
		out.IsAvailable = true
	default:
		out.IsAvailable = true
	}
	return out, nil
}

func (s *AvailabilityService) loadWindows(ctx context.Context, venueID, drinkID uuid.UUID) ([]models.FreeDrinkWindow, error) {
	q := s.db.WithContext(ctx).Where("venue_id = ?", venueID)
	if drinkID != uuid.Nil {
		q = q.Where("drink_id IS NULL OR drink_id = ?", drinkID)
	}
	var windows []models.FreeDrinkWindow
	if err := q.Find(&windows).Error; err != nil {
		return nil, err
	}
	return windows, nil
}
