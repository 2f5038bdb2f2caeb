package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is minutes since midnight, wire format "HH:MM".
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At anchors the time of day on a calendar date (midnight UTC).
func (t TimeOfDay) At(day time.Time) time.Time {
	return day.Add(time.Duration(t) * time.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

type DaySchedule struct {
	Weekday time.Weekday `json:"weekday"`
	Enabled bool         `json:"enabled"`
	Windows []TimeWindow `json:"windows,omitempty"`
}

// WeeklySchedule holds one entry per weekday; interview templates may
// carry multiple disjoint windows on a day, trial templates at most one.
type WeeklySchedule []DaySchedule

// On returns the bookable windows for a weekday, nil when the day is
// disabled or absent.
func (w WeeklySchedule) On(d time.Weekday) []TimeWindow {
	for _, day := range w {
		if day.Weekday != d {
			continue
		}
		if !day.Enabled {
			return nil
		}
		return day.Windows
	}
	return nil
}

type LunchBlock struct {
	Enabled bool      `json:"enabled"`
	Start   TimeOfDay `json:"start"`
	End     TimeOfDay `json:"end"`
}

// GlobalBlocks are exclusions shared by every template. The lunch block
// applies to the interview category only.
type GlobalBlocks struct {
	BankHolidays []time.Time
	Lunch        LunchBlock
}

func (g GlobalBlocks) IsBankHoliday(day time.Time) bool {
	day = DateOf(day)
	for _, h := range g.BankHolidays {
		if DateOf(h).Equal(day) {
			return true
		}
	}
	return false
}

// AvailabilityTemplate is the staff-configured weekly schedule for one
// booking category. It is read live on every request; changes take
// effect on the next read and never retouch committed bookings.
type AvailabilityTemplate struct {
	Category            Category
	Weekly              WeeklySchedule
	SlotDurationMinutes int
	BufferMinutes       int
	AdvanceBookingDays  int
	MinNoticeHours      int
	BlockedDates        []time.Time
}

func (t AvailabilityTemplate) IsBlockedDate(day time.Time) bool {
	day = DateOf(day)
	for _, d := range t.BlockedDates {
		if DateOf(d).Equal(day) {
			return true
		}
	}
	return false
}

func (t AvailabilityTemplate) Validate() error {
	if t.SlotDurationMinutes <= 0 {
		return fmt.Errorf("slot duration must be positive")
	}
	for _, day := range t.Weekly {
		if !day.Enabled {
			continue
		}
		for _, w := range day.Windows {
			if w.Start >= w.End {
				return fmt.Errorf("window %s-%s on %s: start must be before end", w.Start, w.End, day.Weekday)
			}
		}
	}
	return nil
}

func (t AvailabilityTemplate) SlotDuration() time.Duration {
	return time.Duration(t.SlotDurationMinutes) * time.Minute
}

func (t AvailabilityTemplate) Buffer() time.Duration {
	return time.Duration(t.BufferMinutes) * time.Minute
}

func (t AvailabilityTemplate) MinNotice() time.Duration {
	return time.Duration(t.MinNoticeHours) * time.Hour
}

// AvailabilityConfig bundles the template with the global blocks so slot
// generation and the commit re-validation work on one explicit value.
type AvailabilityConfig struct {
	Template AvailabilityTemplate
	Blocks   GlobalBlocks
}

// DateOf truncates a timestamp to its calendar date, midnight UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}
