package models

import (
	"time"

	"github.com/google/uuid"
)

// UserQRToken is a one-time redemption token presented by the consumer app
// as a QR code. Only the SHA-256 hash of the raw token is stored. A token
// is consumed exactly once: UsedAt stays null until validation marks it.
type UserQRToken struct {
	BaseModel
	UserID    uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex" json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}
