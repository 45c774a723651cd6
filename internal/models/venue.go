package models

import "time"

// ExhaustPolicy controls what the availability evaluator does once a
// venue's redemption cap is used up.
type ExhaustPolicy string

const (
	// ExhaustClose stops further redemptions until the next day.
	ExhaustClose ExhaustPolicy = "close"
	// ExhaustShowAltOffer stops redemptions but surfaces an alternative offer text.
	ExhaustShowAltOffer ExhaustPolicy = "show_alt_offer"
	// ExhaustDoNothing keeps redemptions flowing; exhaustion only flags dashboards.
	ExhaustDoNothing ExhaustPolicy = "do_nothing"
)

// Valid reports whether the policy is one of the known values.
func (p ExhaustPolicy) Valid() bool {
	switch p {
	case ExhaustClose, ExhaustShowAltOffer, ExhaustDoNothing:
		return true
	}
	return false
}

// Venue represents a participating bar or restaurant. Venues are never
// deleted, only paused.
type Venue struct {
	BaseModel
	Name         string `json:"name"`
	AddressLine  string `json:"address_line"`
	City         string `json:"city"`
	Timezone     string `json:"timezone"`
	IsPaused     bool   `json:"is_paused"`
	OpeningHours string `json:"opening_hours"`

	DailyCap        int           `json:"daily_cap"`
	HourlyCap       int           `json:"hourly_cap"`
	PerUserDailyCap int           `json:"per_user_daily_cap"`
	OnExhaust       ExhaustPolicy `json:"on_exhaust"`
	AltOfferText    string        `json:"alt_offer_text"`

	Drinks  []Drink           `json:"drinks,omitempty"`
	Windows []FreeDrinkWindow `json:"windows,omitempty"`
}

// Location resolves the venue's IANA timezone, falling back to UTC when unset.
func (v *Venue) Location() (*time.Location, error) {
	if v.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(v.Timezone)
}
