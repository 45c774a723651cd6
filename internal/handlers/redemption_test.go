package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/comegetit/internal/clock"
	"github.com/example/comegetit/internal/config"
	"github.com/example/comegetit/internal/database"
	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/routes"
	"github.com/example/comegetit/internal/services"
	"github.com/example/comegetit/internal/utils"
)

const testAPIKey = "test-pos-key"

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:               "test-secret",
		TokenExpires:            time.Hour,
		POSAPIKey:               testAPIKey,
		POSRatePerMinute:        1000,
		VoidWindow:              24 * time.Hour,
		VoidRateLimit:           10,
		VoidRatePeriod:          time.Minute,
		QRTokenTTL:              5 * time.Minute,
		CapThresholdFull:        100,
		CapThresholdAlmostFull:  90,
		CapThresholdApproaching: 70,
	}

	app := fiber.New()
	routes.Register(app, db, cfg)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return app, db, cfg
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func createUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{FirstName: "Bence", LastName: "Nagy", Phone: "+3611122233", DisplayName: "Bence Nagy", PointsBalance: 40}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createVenue(t *testing.T, db *gorm.DB) models.Venue {
	t.Helper()
	venue := models.Venue{Name: "Ruin Bar", Timezone: "UTC", OnExhaust: models.ExhaustDoNothing}
	require.NoError(t, db.Create(&venue).Error)
	return venue
}

func staffToken(t *testing.T, db *gorm.DB, cfg *config.Config, role models.StaffRole, venues ...models.Venue) string {
	t.Helper()
	staff := models.Staff{Email: string(role) + "@example.com", Role: role, PasswordHash: "x"}
	require.NoError(t, db.Create(&staff).Error)
	for i := range venues {
		require.NoError(t, db.Model(&staff).Association("Venues").Append(&venues[i]))
	}
	token, err := utils.GenerateToken(cfg.JWTSecret, staff.ID, string(role), cfg.TokenExpires)
	require.NoError(t, err)
	return "Bearer " + token
}

func issueToken(t *testing.T, db *gorm.DB, user models.User) string {
	t.Helper()
	svc := services.NewRedemptionService(db, clock.NewSystem(), 24*time.Hour, 10, time.Minute, 5*time.Minute)
	issued, err := svc.IssueToken(context.Background(), user.ID)
	require.NoError(t, err)
	return issued.Token
}

func TestValidateQR_RequiresAPIKey(t *testing.T) {
	app, db, _ := setupApp(t)
	venue := createVenue(t, db)

	resp, _ := postJSON(t, app, "/api/validate-qr", fiber.Map{"token": "x", "venue_id": venue.ID}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, app, "/api/validate-qr", fiber.Map{"token": "x", "venue_id": venue.ID},
		map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestValidateQR_ConsumesTokenOnce(t *testing.T) {
	app, db, _ := setupApp(t)
	venue := createVenue(t, db)
	user := createUser(t, db)
	raw := issueToken(t, db, user)
	header := map[string]string{"X-API-Key": testAPIKey}

	resp, body := postJSON(t, app, "/api/validate-qr", fiber.Map{"token": raw, "venue_id": venue.ID}, header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, user.ID.String(), body["user_id"])
	assert.Equal(t, "Bence Nagy", body["user_name"])
	assert.Equal(t, float64(40), body["points_balance"])

	resp, body = postJSON(t, app, "/api/validate-qr", fiber.Map{"token": raw, "venue_id": venue.ID}, header)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "TOKEN_ALREADY_USED", body["error"])
}

func TestValidateQR_UnknownToken(t *testing.T) {
	app, db, _ := setupApp(t)
	venue := createVenue(t, db)

	resp, body := postJSON(t, app, "/api/validate-qr", fiber.Map{"token": "bogus", "venue_id": venue.ID},
		map[string]string{"X-API-Key": testAPIKey})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TOKEN_NOT_FOUND", body["error"])
}

func TestVoidRedemption_FullFlow(t *testing.T) {
	app, db, cfg := setupApp(t)
	venue := createVenue(t, db)
	user := createUser(t, db)

	redemption := models.Redemption{
		UserID:     user.ID,
		VenueID:    venue.ID,
		Drink:      "Spritz",
		RedeemedAt: time.Now().UTC().Add(-time.Hour),
		Status:     models.RedemptionSuccess,
		Metadata:   models.RedemptionMetadata{Extra: map[string]any{"pos_terminal": "T-1"}},
	}
	require.NoError(t, db.Create(&redemption).Error)

	auth := map[string]string{"Authorization": staffToken(t, db, cfg, models.RoleVenueStaff, venue)}

	// Missing reason is rejected before anything changes.
	resp, body := postJSON(t, app, "/api/void-redemption",
		fiber.Map{"redemption_id": redemption.ID, "reason": "  "}, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	resp, body = postJSON(t, app, "/api/void-redemption",
		fiber.Map{"redemption_id": redemption.ID, "reason": "duplicate scan"}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, redemption.ID.String(), body["redemption_id"])
	assert.NotEmpty(t, body["voided_at"])

	var stored models.Redemption
	require.NoError(t, db.First(&stored, "id = ?", redemption.ID).Error)
	assert.Equal(t, models.RedemptionVoid, stored.Status)
	assert.Equal(t, "duplicate scan", stored.Metadata.VoidReason)
	assert.Equal(t, "T-1", stored.Metadata.Extra["pos_terminal"])

	// Voiding again conflicts.
	resp, body = postJSON(t, app, "/api/void-redemption",
		fiber.Map{"redemption_id": redemption.ID, "reason": "again"}, auth)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", body["error"])
}

func TestVoidRedemption_ForeignVenueForbidden(t *testing.T) {
	app, db, cfg := setupApp(t)
	venue := createVenue(t, db)
	otherVenue := createVenue(t, db)
	user := createUser(t, db)

	redemption := models.Redemption{
		UserID:     user.ID,
		VenueID:    venue.ID,
		Drink:      "Spritz",
		RedeemedAt: time.Now().UTC().Add(-time.Hour),
		Status:     models.RedemptionSuccess,
	}
	require.NoError(t, db.Create(&redemption).Error)

	auth := map[string]string{"Authorization": staffToken(t, db, cfg, models.RoleVenueStaff, otherVenue)}
	resp, body := postJSON(t, app, "/api/void-redemption",
		fiber.Map{"redemption_id": redemption.ID, "reason": "nope"}, auth)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["error"])
}

func TestFreeDrinkStats(t *testing.T) {
	app, db, _ := setupApp(t)
	venue := createVenue(t, db)
	venue.DailyCap = 4
	require.NoError(t, db.Save(&venue).Error)

	// Always-on window so the test does not depend on wall clock.
	window := models.FreeDrinkWindow{
		VenueID:   venue.ID,
		Days:      models.NewDaySet(1, 2, 3, 4, 5, 6, 7),
		StartTime: "00:00",
		EndTime:   "23:59",
		Timezone:  "UTC",
	}
	require.NoError(t, db.Create(&window).Error)

	user := createUser(t, db)
	redemption := models.Redemption{
		UserID:     user.ID,
		VenueID:    venue.ID,
		Drink:      "Spritz",
		RedeemedAt: time.Now().UTC().Add(-time.Minute),
		Status:     models.RedemptionSuccess,
	}
	require.NoError(t, db.Create(&redemption).Error)

	resp, body := postJSON(t, app, "/api/free-drink-stats", fiber.Map{"venue_id": venue.ID}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, float64(1), body["today_redemptions"])
	assert.Equal(t, float64(25), body["cap_usage_pct"])
	assert.Equal(t, true, body["is_active_now"])
	assert.Equal(t, true, body["is_available"])
	assert.Equal(t, false, body["is_paused"])
}

func TestDetectMilestones_Endpoint(t *testing.T) {
	app, db, _ := setupApp(t)
	venue := createVenue(t, db)
	user := createUser(t, db)

	redemption := models.Redemption{
		UserID:     user.ID,
		VenueID:    venue.ID,
		Drink:      "Spritz",
		RedeemedAt: time.Now().UTC().Add(-time.Minute),
		Status:     models.RedemptionSuccess,
	}
	require.NoError(t, db.Create(&redemption).Error)

	resp, body := postJSON(t, app, "/api/detect-milestones",
		fiber.Map{"user_id": user.ID, "venue_id": venue.ID}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	created, ok := body["new_milestones"].([]any)
	require.True(t, ok)
	require.Len(t, created, 1)

	// Second run over unchanged history inserts nothing.
	resp, body = postJSON(t, app, "/api/detect-milestones",
		fiber.Map{"user_id": user.ID, "venue_id": venue.ID}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["new_milestones"])
}
