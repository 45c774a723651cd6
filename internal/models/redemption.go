package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RedemptionStatus enumerates the redemption lifecycle states.
type RedemptionStatus string

const (
	RedemptionPending RedemptionStatus = "pending"
	RedemptionSuccess RedemptionStatus = "success"
	RedemptionVoid    RedemptionStatus = "void"
	RedemptionFailed  RedemptionStatus = "failed"
	RedemptionExpired RedemptionStatus = "expired"
)

// Metadata keys recognized by the void flow.
const (
	metaKeyVoidedAt   = "voided_at"
	metaKeyVoidedBy   = "voided_by"
	metaKeyVoidReason = "void_reason"
)

// RedemptionMetadata is the structured audit blob attached to a redemption.
// Recognized void fields are typed; anything else written upstream lands in
// Extra and survives every mutation. Updates must go through WithVoid so
// earlier fields are merged, never overwritten.
type RedemptionMetadata struct {
	VoidedAt   *time.Time
	VoidedBy   string
	VoidReason string
	Extra      map[string]any
}

// WithVoid returns a copy with the void audit fields set. Extra and any
// previously recorded fields are preserved.
func (m RedemptionMetadata) WithVoid(at time.Time, by, reason string) RedemptionMetadata {
	out := m
	out.VoidedAt = &at
	out.VoidedBy = by
	out.VoidReason = reason
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// MarshalJSON flattens Extra and the recognized fields into one object.
func (m RedemptionMetadata) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		flat[k] = v
	}
	if m.VoidedAt != nil {
		flat[metaKeyVoidedAt] = m.VoidedAt.UTC().Format(time.RFC3339Nano)
	}
	if m.VoidedBy != "" {
		flat[metaKeyVoidedBy] = m.VoidedBy
	}
	if m.VoidReason != "" {
		flat[metaKeyVoidReason] = m.VoidReason
	}
	return json.Marshal(flat)
}

// UnmarshalJSON pulls the recognized fields out and keeps the rest in Extra.
func (m *RedemptionMetadata) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*m = RedemptionMetadata{}
	for k, v := range flat {
		switch k {
		case metaKeyVoidedAt:
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					m.VoidedAt = &t
				}
			}
		case metaKeyVoidedBy:
			if s, ok := v.(string); ok {
				m.VoidedBy = s
			}
		case metaKeyVoidReason:
			if s, ok := v.(string); ok {
				m.VoidReason = s
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// Value implements driver.Valuer so the metadata persists as a JSON column.
func (m RedemptionMetadata) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *RedemptionMetadata) Scan(value any) error {
	if value == nil {
		*m = RedemptionMetadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
}

// Redemption records one free-drink redemption by a user at a venue.
type Redemption struct {
	BaseModel
	UserID     uuid.UUID          `gorm:"type:uuid;index" json:"user_id"`
	VenueID    uuid.UUID          `gorm:"type:uuid;index" json:"venue_id"`
	DrinkID    *uuid.UUID         `gorm:"type:uuid" json:"drink_id"`
	Drink      string             `json:"drink"`
	Value      decimal.Decimal    `gorm:"type:numeric(12,2)" json:"value"`
	RedeemedAt time.Time          `gorm:"index" json:"redeemed_at"`
	Status     RedemptionStatus   `gorm:"index" json:"status"`
	Metadata   RedemptionMetadata `gorm:"type:jsonb" json:"metadata"`
}
