package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/clock"
	"github.com/example/comegetit/internal/models"
)

// DefaultVoidWindow is how long non-admin staff may void a redemption.
const DefaultVoidWindow = 24 * time.Hour

// DefaultTokenTTL is how long an issued QR token stays redeemable.
const DefaultTokenTTL = 5 * time.Minute

// HashToken returns the hex SHA-256 digest under which a raw QR token is
// stored. The raw token itself never touches the database.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RedemptionService owns the redemption lifecycle: QR token issuance and
// consumption, confirmation, and the guarded void path.
type RedemptionService struct {
	db         *gorm.DB
	clk        clock.Clock
	voidWindow time.Duration
	voidLimit  *SlidingWindow
	tokenTTL   time.Duration
}

// NewRedemptionService constructs a RedemptionService with the given void
// rate limit (events per period per actor).
func NewRedemptionService(db *gorm.DB, clk clock.Clock, voidWindow time.Duration, voidRate int, voidRatePeriod time.Duration, tokenTTL time.Duration) *RedemptionService {
	return &RedemptionService{
		db:         db,
		clk:        clk,
		voidWindow: voidWindow,
		voidLimit:  NewSlidingWindow(voidRate, voidRatePeriod),
		tokenTTL:   tokenTTL,
	}
}

// IssuedToken carries the raw token back to the consumer app exactly once.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken mints a one-time QR token for the user and stores its hash.
func (s *RedemptionService) IssueToken(ctx context.Context, userID uuid.UUID) (*IssuedToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	raw := hex.EncodeToString(buf)

	token := models.UserQRToken{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: s.clk.Now().Add(s.tokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &IssuedToken{Token: raw, ExpiresAt: token.ExpiresAt}, nil
}

// TokenValidation is the snapshot returned to the POS after a successful scan.
type TokenValidation struct {
	UserID        uuid.UUID `json:"user_id"`
	UserName      string    `json:"user_name"`
	PointsBalance int       `json:"points_balance"`
	ValidatedAt   time.Time `json:"validated_at"`
}

// ValidateAndConsumeToken looks up a token by the hash of the presented raw
// value and marks it used. Consumption is a conditional UPDATE guarded by
// used_at IS NULL with an affected-row check, so two concurrent scans of
// the same QR cannot both succeed.
func (s *RedemptionService) ValidateAndConsumeToken(ctx context.Context, rawToken string) (*TokenValidation, error) {
	now := s.clk.Now()
	db := s.db.WithContext(ctx)

	var token models.UserQRToken
	if err := db.Where("token_hash = ?", HashToken(rawToken)).First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	if token.ExpiresAt.Before(now) {
		if err := db.Delete(&models.UserQRToken{}, "id = ?", token.ID).Error; err != nil {
			log.Printf("[Redemption] Failed to delete expired token %s: %v", token.ID, err)
		}
		return nil, ErrTokenExpired
	}

	if token.UsedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}

	res := db.Model(&models.UserQRToken{}).
		Where("id = ? AND used_at IS NULL", token.ID).
		Update("used_at", now)
	if res.Error != nil {
		return nil, fmt.Errorf("consume token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another scan won the race between our read and the update.
		return nil, ErrTokenAlreadyUsed
	}

	var user models.User
	if err := db.First(&user, "id = ?", token.UserID).Error; err != nil {
		return nil, fmt.Errorf("load user %s: %w", token.UserID, err)
	}

	name := user.DisplayName
	if name == "" {
		name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	return &TokenValidation{
		UserID:        user.ID,
		UserName:      name,
		PointsBalance: user.PointsBalance,
		ValidatedAt:   now,
	}, nil
}

// Confirm records a successful redemption for the user at the venue.
func (s *RedemptionService) Confirm(ctx context.Context, userID, venueID uuid.UUID, drinkID *uuid.UUID, drink string, value decimal.Decimal) (*models.Redemption, error) {
	redemption := models.Redemption{
		UserID:     userID,
		VenueID:    venueID,
		DrinkID:    drinkID,
		Drink:      drink,
		Value:      value,
		RedeemedAt: s.clk.Now(),
		Status:     models.RedemptionSuccess,
	}
	if err := s.db.WithContext(ctx).Create(&redemption).Error; err != nil {
		return nil, fmt.Errorf("create redemption: %w", err)
	}
	return &redemption, nil
}

// Void reverses a successful redemption. It is gated, in order, by input
// validation, current state, venue authorization, the non-admin time limit,
// and the per-actor rate limit. The void audit fields are merged into the
// existing metadata; earlier keys survive.
func (s *RedemptionService) Void(ctx context.Context, redemptionID uuid.UUID, reason string, actor Actor) (*models.Redemption, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ValidationError("void reason is required")
	}

	now := s.clk.Now()
	db := s.db.WithContext(ctx)

	var redemption models.Redemption
	if err := db.First(&redemption, "id = ?", redemptionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("load redemption: %w", err)
	}

	if redemption.Status != models.RedemptionSuccess {
		return nil, InvalidState(string(redemption.Status))
	}

	if !actor.ManagesVenue(redemption.VenueID) {
		return nil, ErrForbidden
	}

	if !actor.IsAdmin() && now.Sub(redemption.RedeemedAt) > s.voidWindow {
		return nil, ErrStaffWindowExpired
	}

	if !s.voidLimit.Allow(actor.ID.String(), now) {
		return nil, ErrRateLimited
	}

	merged := redemption.Metadata.WithVoid(now, actor.ID.String(), reason)
	res := db.Model(&models.Redemption{}).
		Where("id = ? AND status = ?", redemption.ID, models.RedemptionSuccess).
		Updates(map[string]any{
			"status":   models.RedemptionVoid,
			"metadata": merged,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("void redemption: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with another void of the same redemption.
		return nil, InvalidState(string(models.RedemptionVoid))
	}

	redemption.Status = models.RedemptionVoid
	redemption.Metadata = merged
	return &redemption, nil
}
