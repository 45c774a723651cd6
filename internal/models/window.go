package models

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// DaySet is a bitmask of ISO weekdays (Monday=1 .. Sunday=7). Bit n-1
// is set when weekday n is included.
type DaySet int

// NewDaySet builds a DaySet from ISO weekday numbers. Out-of-range
// values are ignored.
func NewDaySet(days ...int) DaySet {
	var s DaySet
	for _, d := range days {
		if d >= 1 && d <= 7 {
			s |= 1 << (d - 1)
		}
	}
	return s
}

// Has reports whether the ISO weekday is in the set.
func (s DaySet) Has(day int) bool {
	if day < 1 || day > 7 {
		return false
	}
	return s&(1<<(day-1)) != 0
}

// IsEmpty reports whether no weekday is selected.
func (s DaySet) IsEmpty() bool {
	return s&0x7f == 0
}

// Days returns the included ISO weekdays in ascending order.
func (s DaySet) Days() []int {
	days := make([]int, 0, 7)
	for d := 1; d <= 7; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// MarshalJSON renders the set as a sorted list of weekday numbers.
func (s DaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Days())
}

// UnmarshalJSON accepts a list of weekday numbers.
func (s *DaySet) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	sort.Ints(days)
	*s = NewDaySet(days...)
	return nil
}

// FreeDrinkWindow is a recurring weekly availability window for a venue's
// free drink. Multiple windows union together; the drink is available when
// any window is active. Windows never span midnight (start < end).
type FreeDrinkWindow struct {
	BaseModel
	VenueID   uuid.UUID  `gorm:"type:uuid;index" json:"venue_id"`
	DrinkID   *uuid.UUID `gorm:"type:uuid;index" json:"drink_id"`
	Days      DaySet     `gorm:"type:integer" json:"days"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Timezone  string     `json:"timezone"`
}
