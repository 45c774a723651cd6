package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/models"
)

// Cap status buckets shown on the dashboard.
const (
	CapBucketExhausted   = "Elfogyott"
	CapBucketAlmostFull  = "Majdnem tele"
	CapBucketApproaching = "Közeledik a limit"
	CapBucketAvailable   = "Elérhető"
)

// CapThresholds are the usage percentages that move the status bucket.
type CapThresholds struct {
	Full        float64
	AlmostFull  float64
	Approaching float64
}

// DefaultCapThresholds matches the dashboard's stock configuration.
func DefaultCapThresholds() CapThresholds {
	return CapThresholds{Full: 100, AlmostFull: 90, Approaching: 70}
}

// CapConfig is a venue's redemption cap configuration. Zero means unlimited.
type CapConfig struct {
	Daily        int                  `json:"daily"`
	Hourly       int                  `json:"hourly"`
	PerUserDaily int                  `json:"per_user_daily"`
	OnExhaust    models.ExhaustPolicy `json:"on_exhaust"`
	AltOfferText string               `json:"alt_offer_text,omitempty"`
}

// CapConfigFor extracts the cap configuration from a venue row.
func CapConfigFor(v models.Venue) CapConfig {
	policy := v.OnExhaust
	if !policy.Valid() {
		policy = models.ExhaustDoNothing
	}
	return CapConfig{
		Daily:        v.DailyCap,
		Hourly:       v.HourlyCap,
		PerUserDaily: v.PerUserDailyCap,
		OnExhaust:    policy,
		AltOfferText: v.AltOfferText,
	}
}

// CapCounts are point-in-time successful-redemption counts. Under concurrent
// redemptions two requests may both read "not exhausted" and both succeed;
// caps are soft limits, not hard invariants.
type CapCounts struct {
	UsedToday       int `json:"used_today"`
	UsedThisHour    int `json:"used_this_hour"`
	UsedByUserToday int `json:"used_by_user_today"`
}

// CapStatus is the derived usage state for one venue.
type CapStatus struct {
	UsagePct    float64 `json:"usage_pct"`
	IsExhausted bool    `json:"is_exhausted"`
	Bucket      string  `json:"bucket"`
	UsedToday   int     `json:"used_today"`
	DailyCap    int     `json:"daily_cap"`
}

// ComputeCapStatus derives usage percentage, exhaustion and the display
// bucket from a cap configuration and current counts. Usage is clamped to
// [0,100] even when redemptions raced past the cap.
func ComputeCapStatus(cfg CapConfig, counts CapCounts, th CapThresholds) CapStatus {
	status := CapStatus{
		UsedToday: counts.UsedToday,
		DailyCap:  cfg.Daily,
		Bucket:    CapBucketAvailable,
	}

	if cfg.Daily > 0 {
		pct := float64(counts.UsedToday) / float64(cfg.Daily) * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		status.UsagePct = pct
	}

	switch {
	case cfg.Daily > 0 && counts.UsedToday >= cfg.Daily:
		status.IsExhausted = true
	case cfg.Hourly > 0 && counts.UsedThisHour >= cfg.Hourly:
		status.IsExhausted = true
	case cfg.PerUserDaily > 0 && counts.UsedByUserToday >= cfg.PerUserDaily:
		status.IsExhausted = true
	}

	switch {
	case status.UsagePct >= th.Full:
		status.Bucket = CapBucketExhausted
	case status.UsagePct >= th.AlmostFull:
		status.Bucket = CapBucketAlmostFull
	case status.UsagePct >= th.Approaching:
		status.Bucket = CapBucketApproaching
	}

	return status
}

// LocalDayStart returns midnight of the instant's day in the given zone.
// Day boundaries must be computed in the venue's zone, not UTC, or venues
// east/west of Greenwich count the wrong day.
func LocalDayStart(at time.Time, loc *time.Location) time.Time {
	local := at.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// LocalHourStart returns the top of the instant's hour in the given zone.
func LocalHourStart(at time.Time, loc *time.Location) time.Time {
	local := at.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}

// LocalWeekStart returns the most recent Monday midnight in the given zone.
func LocalWeekStart(at time.Time, loc *time.Location) time.Time {
	dayStart := LocalDayStart(at, loc)
	return dayStart.AddDate(0, 0, -(isoWeekday(dayStart) - 1))
}

// LocalMonthStart returns the first-of-month midnight in the given zone.
func LocalMonthStart(at time.Time, loc *time.Location) time.Time {
	local := at.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// CountRedemptions reads the successful-redemption counts backing cap
// accounting. userID may be uuid.Nil when no per-user count is needed.
func CountRedemptions(ctx context.Context, db *gorm.DB, venueID, userID uuid.UUID, at time.Time, loc *time.Location) (CapCounts, error) {
	var counts CapCounts
	dayStart := LocalDayStart(at, loc)
	hourStart := LocalHourStart(at, loc)

	base := db.WithContext(ctx).Model(&models.Redemption{}).
		Where("venue_id = ? AND status = ?", venueID, models.RedemptionSuccess)

	var total int64
	if err := base.Session(&gorm.Session{}).
		Where("redeemed_at >= ?", dayStart).Count(&total).Error; err != nil {
		return counts, err
	}
	counts.UsedToday = int(total)

	if err := base.Session(&gorm.Session{}).
		Where("redeemed_at >= ?", hourStart).Count(&total).Error; err != nil {
		return counts, err
	}
	counts.UsedThisHour = int(total)

	if userID != uuid.Nil {
		if err := base.Session(&gorm.Session{}).
			Where("user_id = ? AND redeemed_at >= ?", userID, dayStart).Count(&total).Error; err != nil {
			return counts, err
		}
		counts.UsedByUserToday = int(total)
	}

	return counts, nil
}
