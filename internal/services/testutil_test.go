package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/comegetit/internal/models"
)

// setupTestDB opens an isolated in-memory sqlite database with the full
// schema migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	migrations := []interface{}{
		&models.User{},
		&models.Staff{},
		&models.Venue{},
		&models.Drink{},
		&models.FreeDrinkWindow{},
		&models.UserQRToken{},
		&models.Redemption{},
		&models.LoyaltyMilestone{},
	}
	for _, m := range migrations {
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	return db
}

func createTestVenue(t *testing.T, db *gorm.DB, tz string, dailyCap int, policy models.ExhaustPolicy) models.Venue {
	t.Helper()
	venue := models.Venue{
		Name:      "Test Bar",
		Timezone:  tz,
		DailyCap:  dailyCap,
		OnExhaust: policy,
	}
	if err := db.Create(&venue).Error; err != nil {
		t.Fatalf("failed to create venue: %v", err)
	}
	return venue
}

func createTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		FirstName:     "Anna",
		LastName:      "Kovács",
		Phone:         "+36" + uuid.NewString()[:8],
		DisplayName:   "Anna Kovács",
		PointsBalance: 120,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestRedemption(t *testing.T, db *gorm.DB, userID, venueID uuid.UUID, status models.RedemptionStatus, redeemedAt time.Time) models.Redemption {
	t.Helper()
	redemption := models.Redemption{
		UserID:     userID,
		VenueID:    venueID,
		Drink:      "Negroni",
		Value:      decimal.NewFromInt(2500),
		RedeemedAt: redeemedAt,
		Status:     status,
	}
	if err := db.Create(&redemption).Error; err != nil {
		t.Fatalf("failed to create redemption: %v", err)
	}
	return redemption
}
