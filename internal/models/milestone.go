package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MilestoneType enumerates the loyalty milestones a user can reach at a venue.
type MilestoneType string

const (
	MilestoneFirstVisit    MilestoneType = "first_visit"
	MilestoneReturning     MilestoneType = "returning"
	MilestoneWeeklyRegular MilestoneType = "weekly_regular"
	MilestoneMonthlyVIP    MilestoneType = "monthly_vip"
	MilestonePlatinum      MilestoneType = "platinum"
	MilestoneLegendary     MilestoneType = "legendary"
)

// LoyaltyMilestone records that a user reached a milestone at a venue.
// At most one row per (user, venue, type); rows are never deleted.
type LoyaltyMilestone struct {
	BaseModel
	UserID        uuid.UUID       `gorm:"type:uuid;index:idx_milestone_pair,unique" json:"user_id"`
	VenueID       uuid.UUID       `gorm:"type:uuid;index:idx_milestone_pair,unique" json:"venue_id"`
	MilestoneType MilestoneType   `gorm:"index:idx_milestone_pair,unique" json:"milestone_type"`
	VisitCount    int             `json:"visit_count"`
	TotalSpend    decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_spend"`

	AdminNotified  bool `json:"admin_notified"`
	AdminDismissed bool `json:"admin_dismissed"`
	RewardSent     bool `json:"reward_sent"`
}
