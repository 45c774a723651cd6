package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/comegetit/internal/models"
)

var dayNames = [8]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the English name for an ISO weekday (1=Monday..7=Sunday).
func DayName(day int) string {
	if day < 1 || day > 7 {
		return ""
	}
	return dayNames[day]
}

// isoWeekday maps Go's Sunday=0 weekday to ISO Monday=1..Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseClock parses a local "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

func windowLocation(w models.FreeDrinkWindow) (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(w.Timezone)
}

// WindowActiveAt reports whether the window covers the given instant.
// The instant is resolved in the window's timezone; both the start and end
// minute are inclusive.
func WindowActiveAt(w models.FreeDrinkWindow, at time.Time) (bool, error) {
	loc, err := windowLocation(w)
	if err != nil {
		return false, fmt.Errorf("window %s: %w", w.ID, err)
	}
	local := at.In(loc)
	if !w.Days.Has(isoWeekday(local)) {
		return false, nil
	}
	startMin, err := ParseClock(w.StartTime)
	if err != nil {
		return false, fmt.Errorf("window %s: %w", w.ID, err)
	}
	endMin, err := ParseClock(w.EndTime)
	if err != nil {
		return false, fmt.Errorf("window %s: %w", w.ID, err)
	}
	nowMin := local.Hour()*60 + local.Minute()
	return startMin <= nowMin && nowMin <= endMin, nil
}

// AnyWindowActiveAt reports whether any of the windows covers the instant.
// Windows with malformed hours are skipped rather than failing the whole set.
func AnyWindowActiveAt(windows []models.FreeDrinkWindow, at time.Time) (*models.FreeDrinkWindow, bool) {
	for i := range windows {
		if active, err := WindowActiveAt(windows[i], at); err == nil && active {
			return &windows[i], true
		}
	}
	return nil, false
}

// NextWindow returns the window that next becomes active after the given
// instant, along with its opening instant, scanning forward up to a full
// week. When a window is active right now, or no window matches within
// seven days, it returns nil.
func NextWindow(windows []models.FreeDrinkWindow, at time.Time) (*models.FreeDrinkWindow, time.Time) {
	if _, active := AnyWindowActiveAt(windows, at); active {
		return nil, time.Time{}
	}

	var (
		best      *models.FreeDrinkWindow
		bestStart time.Time
	)
	for i := range windows {
		w := &windows[i]
		loc, err := windowLocation(*w)
		if err != nil {
			continue
		}
		startMin, err := ParseClock(w.StartTime)
		if err != nil {
			continue
		}
		local := at.In(loc)
		for offset := 0; offset <= 7; offset++ {
			day := local.AddDate(0, 0, offset)
			if !w.Days.Has(isoWeekday(day)) {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
			if !start.After(at) {
				continue
			}
			if best == nil || start.Before(bestStart) {
				best = w
				bestStart = start
			}
			break
		}
	}
	return best, bestStart
}

// ScheduleGroup is a run of consecutive weekdays sharing identical hours.
type ScheduleGroup struct {
	FirstDay int    `json:"first_day"`
	LastDay  int    `json:"last_day"`
	Label    string `json:"label"`
	Hours    string `json:"hours"`
}

// GroupSchedule run-length encodes a per-weekday hours table (index 1..7,
// empty string = closed) into display ranges like "Monday – Friday".
func GroupSchedule(hoursByDay [8]string) []ScheduleGroup {
	var groups []ScheduleGroup
	for day := 1; day <= 7; day++ {
		hours := hoursByDay[day]
		if hours == "" {
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].LastDay == day-1 && groups[n-1].Hours == hours {
			groups[n-1].LastDay = day
			groups[n-1].Label = DayName(groups[n-1].FirstDay) + " – " + DayName(day)
			continue
		}
		groups = append(groups, ScheduleGroup{
			FirstDay: day,
			LastDay:  day,
			Label:    DayName(day),
			Hours:    hours,
		})
	}
	return groups
}
