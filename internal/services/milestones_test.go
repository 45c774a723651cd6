package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/clock"
	"github.com/example/comegetit/internal/models"
)

func newMilestoneService(db *gorm.DB, now time.Time) *MilestoneService {
	return NewMilestoneService(db, clock.NewFixed(now), nil)
}

func milestoneTypes(ms []models.LoyaltyMilestone) []models.MilestoneType {
	types := make([]models.MilestoneType, 0, len(ms))
	for _, m := range ms {
		types = append(types, m.MilestoneType)
	}
	return types
}

func TestDetectForPair_FirstVisit(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)
	now := mondayAt(15, 0)
	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-time.Hour))

	svc := newMilestoneService(db, now)
	created, err := svc.DetectForPair(context.Background(), user.ID, venue.ID)
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, models.MilestoneFirstVisit, created[0].MilestoneType)
	assert.Equal(t, 1, created[0].VisitCount)
	// first_visit does not want admin attention, so it starts notified.
	assert.True(t, created[0].AdminNotified)
	assert.False(t, created[0].AdminDismissed)
	assert.False(t, created[0].RewardSent)
}

func TestDetectForPair_WeeklyRegularWantsAdmin(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)
	now := mondayAt(15, 0)

	// Three visits this week (Monday counts from local midnight).
	for i := 1; i <= 3; i++ {
		createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-time.Duration(i)*time.Hour))
	}

	svc := newMilestoneService(db, now)
	created, err := svc.DetectForPair(context.Background(), user.ID, venue.ID)
	require.NoError(t, err)

	types := milestoneTypes(created)
	assert.Contains(t, types, models.MilestoneReturning)
	assert.Contains(t, types, models.MilestoneWeeklyRegular)
	assert.NotContains(t, types, models.MilestoneFirstVisit)

	for _, m := range created {
		if m.MilestoneType == models.MilestoneWeeklyRegular {
			assert.False(t, m.AdminNotified)
		}
	}
}

func TestDetectForPair_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)
	now := mondayAt(15, 0)
	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-time.Hour))

	svc := newMilestoneService(db, now)
	first, err := svc.DetectForPair(context.Background(), user.ID, venue.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.DetectForPair(context.Background(), user.ID, venue.ID)
	require.NoError(t, err)
	assert.Empty(t, second)

	var total int64
	require.NoError(t, db.Model(&models.LoyaltyMilestone{}).Count(&total).Error)
	assert.Equal(t, int64(len(first)), total)
}

func TestDetectForPair_ExactCountMilestonesNotRetroactive(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)
	now := mondayAt(15, 0)

	// Five lifetime visits, spread over past months so the weekly and
	// monthly predicates stay quiet.
	for i := 0; i < 5; i++ {
		createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.AddDate(0, -2, -i*7))
	}

	svc := newMilestoneService(db, now)
	created, err := svc.DetectForPair(context.Background(), user.ID, venue.ID)
	require.NoError(t, err)

	// visits_total is 5: the == 1 and == 3 predicates no longer hold, and
	// 50/100 are far off. Nothing fires.
	assert.Empty(t, created)
}

func TestDetectForPair_VoidedVisitsDoNotCount(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)
	now := mondayAt(15, 0)

	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionVoid, now.Add(-2*time.Hour))
	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-time.Hour))

	svc := newMilestoneService(db, now)
	created, err := svc.DetectForPair(context.Background(), user.ID, venue.ID)
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, models.MilestoneFirstVisit, created[0].MilestoneType)
}

func TestComputeVisitStats_WeekStartsMonday(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)

	// Now is Monday noon; a visit late the previous Sunday is last week.
	now := mondayAt(12, 0)
	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-18*time.Hour))
	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-2*time.Hour))

	svc := newMilestoneService(db, now)
	stats, err := svc.ComputeVisitStats(context.Background(), user.ID, venue.ID, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.VisitsTotal)
	assert.Equal(t, 1, stats.VisitsThisWeek)
	assert.Equal(t, 1, stats.VisitsToday)
}

func TestComputeVisitStats_TotalSpend(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	user := createTestUser(t, db)
	now := mondayAt(15, 0)

	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-time.Hour))
	createTestRedemption(t, db, user.ID, venue.ID, models.RedemptionSuccess, now.Add(-2*time.Hour))

	svc := newMilestoneService(db, now)
	stats, err := svc.ComputeVisitStats(context.Background(), user.ID, venue.ID, time.UTC)
	require.NoError(t, err)

	assert.True(t, stats.TotalSpend.Equal(decimal.NewFromInt(5000)), "got %s", stats.TotalSpend)
}

func TestScanRecent_CoversTouchedPairs(t *testing.T) {
	db := setupTestDB(t)
	venue := createTestVenue(t, db, "UTC", 0, models.ExhaustDoNothing)
	userA := createTestUser(t, db)
	userB := createTestUser(t, db)
	now := mondayAt(15, 0)

	createTestRedemption(t, db, userA.ID, venue.ID, models.RedemptionSuccess, now.Add(-time.Hour))
	createTestRedemption(t, db, userB.ID, venue.ID, models.RedemptionSuccess, now.Add(-2*time.Hour))
	// Outside the lookback window: pair not rescanned, but history still
	// counts if the pair is touched.
	createTestRedemption(t, db, userB.ID, venue.ID, models.RedemptionSuccess, now.Add(-48*time.Hour))

	svc := newMilestoneService(db, now)
	created, err := svc.ScanRecent(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	byUser := map[string][]models.MilestoneType{}
	for _, m := range created {
		byUser[m.UserID.String()] = append(byUser[m.UserID.String()], m.MilestoneType)
	}
	assert.Contains(t, byUser[userA.ID.String()], models.MilestoneFirstVisit)
	// userB has two lifetime visits: first_visit no longer holds.
	assert.Empty(t, byUser[userB.ID.String()])
}
