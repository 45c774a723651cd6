package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Drink is a sponsored free-drink offer belonging to a venue.
type Drink struct {
	BaseModel
	VenueID  uuid.UUID       `gorm:"type:uuid;index" json:"venue_id"`
	Name     string          `json:"name"`
	Value    decimal.Decimal `gorm:"type:numeric(12,2)" json:"value"`
	IsActive bool            `json:"is_active"`
}
