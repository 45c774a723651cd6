package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/clock"
	"github.com/example/comegetit/internal/models"
)

// VisitStats is the per-(user, venue) aggregate the milestone predicates
// run against. All period boundaries are venue-local; weeks start Monday.
type VisitStats struct {
	VisitsToday     int             `json:"visits_today"`
	VisitsThisWeek  int             `json:"visits_this_week"`
	VisitsThisMonth int             `json:"visits_this_month"`
	VisitsTotal     int             `json:"visits_total"`
	TotalSpend      decimal.Decimal `json:"total_spend"`
}

// MilestoneDef pairs a milestone type with its predicate. NotifyAdmin
// milestones surface in the dashboard's pending-alerts queue.
type MilestoneDef struct {
	Type        models.MilestoneType
	NotifyAdmin bool
	Satisfied   func(VisitStats) bool
}

// milestoneDefs is the fixed, ordered milestone table.
var milestoneDefs = []MilestoneDef{
	{Type: models.MilestoneFirstVisit, NotifyAdmin: false, Satisfied: func(s VisitStats) bool { return s.VisitsTotal == 1 }},
	{Type: models.MilestoneReturning, NotifyAdmin: false, Satisfied: func(s VisitStats) bool { return s.VisitsTotal == 3 }},
	{Type: models.MilestoneWeeklyRegular, NotifyAdmin: true, Satisfied: func(s VisitStats) bool { return s.VisitsThisWeek >= 3 }},
	{Type: models.MilestoneMonthlyVIP, NotifyAdmin: true, Satisfied: func(s VisitStats) bool { return s.VisitsThisMonth >= 10 }},
	{Type: models.MilestonePlatinum, NotifyAdmin: true, Satisfied: func(s VisitStats) bool { return s.VisitsTotal == 50 }},
	{Type: models.MilestoneLegendary, NotifyAdmin: true, Satisfied: func(s VisitStats) bool { return s.VisitsTotal == 100 }},
}

// MilestoneService detects loyalty milestones from redemption history.
// Detection is idempotent: already-recorded (user, venue, type) rows are
// skipped, so re-running over unchanged history inserts nothing.
type MilestoneService struct {
	db       *gorm.DB
	clk      clock.Clock
	notifier *TelegramService
}

// NewMilestoneService constructs a MilestoneService. notifier may be nil.
func NewMilestoneService(db *gorm.DB, clk clock.Clock, notifier *TelegramService) *MilestoneService {
	return &MilestoneService{db: db, clk: clk, notifier: notifier}
}

// ComputeVisitStats aggregates successful redemptions for the pair.
func (s *MilestoneService) ComputeVisitStats(ctx context.Context, userID, venueID uuid.UUID, loc *time.Location) (VisitStats, error) {
	now := s.clk.Now()
	var stats VisitStats

	base := s.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("user_id = ? AND venue_id = ? AND status = ?", userID, venueID, models.RedemptionSuccess)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return stats, err
	}
	stats.VisitsTotal = int(total)

	if err := base.Session(&gorm.Session{}).
		Where("redeemed_at >= ?", LocalDayStart(now, loc)).Count(&total).Error; err != nil {
		return stats, err
	}
	stats.VisitsToday = int(total)

	if err := base.Session(&gorm.Session{}).
		Where("redeemed_at >= ?", LocalWeekStart(now, loc)).Count(&total).Error; err != nil {
		return stats, err
	}
	stats.VisitsThisWeek = int(total)

	if err := base.Session(&gorm.Session{}).
		Where("redeemed_at >= ?", LocalMonthStart(now, loc)).Count(&total).Error; err != nil {
		return stats, err
	}
	stats.VisitsThisMonth = int(total)

	var spend decimal.NullDecimal
	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(value), 0)").Scan(&spend).Error; err != nil {
		return stats, err
	}
	if spend.Valid {
		stats.TotalSpend = spend.Decimal
	}

	return stats, nil
}

// DetectForPair recomputes VisitStats for the pair and inserts any newly
// satisfied milestones. Milestones whose definition does not ask for admin
// attention start out already marked notified.
func (s *MilestoneService) DetectForPair(ctx context.Context, userID, venueID uuid.UUID) ([]models.LoyaltyMilestone, error) {
	db := s.db.WithContext(ctx)

	var venue models.Venue
	if err := db.First(&venue, "id = ?", venueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("load venue: %w", err)
	}
	loc, err := venue.Location()
	if err != nil {
		return nil, fmt.Errorf("venue %s timezone: %w", venueID, err)
	}

	stats, err := s.ComputeVisitStats(ctx, userID, venueID, loc)
	if err != nil {
		return nil, fmt.Errorf("compute visit stats: %w", err)
	}

	var existing []models.LoyaltyMilestone
	if err := db.Where("user_id = ? AND venue_id = ?", userID, venueID).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load existing milestones: %w", err)
	}
	recorded := make(map[models.MilestoneType]bool, len(existing))
	for _, m := range existing {
		recorded[m.MilestoneType] = true
	}

	var created []models.LoyaltyMilestone
	for _, def := range milestoneDefs {
		if recorded[def.Type] || !def.Satisfied(stats) {
			continue
		}
		milestone := models.LoyaltyMilestone{
			UserID:        userID,
			VenueID:       venueID,
			MilestoneType: def.Type,
			VisitCount:    stats.VisitsTotal,
			TotalSpend:    stats.TotalSpend,
			AdminNotified: !def.NotifyAdmin,
		}
		if err := db.Create(&milestone).Error; err != nil {
			return created, fmt.Errorf("insert milestone %s: %w", def.Type, err)
		}
		created = append(created, milestone)

		if def.NotifyAdmin && s.notifier != nil {
			if err := s.notifier.NotifyMilestone(MilestoneNotification{
				VenueName:     venue.Name,
				MilestoneType: string(def.Type),
				VisitCount:    stats.VisitsTotal,
			}); err != nil {
				log.Printf("[Milestones] Telegram notification failed for %s: %v", def.Type, err)
			}
		}
	}
	return created, nil
}

// OnRedemptionSuccess is the event-triggered entry point, fired right after
// a redemption is confirmed.
func (s *MilestoneService) OnRedemptionSuccess(ctx context.Context, userID, venueID uuid.UUID) ([]models.LoyaltyMilestone, error) {
	return s.DetectForPair(ctx, userID, venueID)
}

// ScanRecent is the cron entry point: it finds every (user, venue) pair
// with a successful redemption inside the lookback window and runs
// detection for each.
func (s *MilestoneService) ScanRecent(ctx context.Context, lookback time.Duration) ([]models.LoyaltyMilestone, error) {
	since := s.clk.Now().Add(-lookback)

	type pair struct {
		UserID  uuid.UUID
		VenueID uuid.UUID
	}
	var pairs []pair
	if err := s.db.WithContext(ctx).Model(&models.Redemption{}).
		Distinct("user_id", "venue_id").
		Where("status = ? AND redeemed_at >= ?", models.RedemptionSuccess, since).
		Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("scan recent redemptions: %w", err)
	}

	var created []models.LoyaltyMilestone
	for _, p := range pairs {
		found, err := s.DetectForPair(ctx, p.UserID, p.VenueID)
		if err != nil {
			log.Printf("[Milestones] Detection failed for user %s venue %s: %v", p.UserID, p.VenueID, err)
			continue
		}
		created = append(created, found...)
	}
	return created, nil
}
