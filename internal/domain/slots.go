package domain

import "time"

type SlotReason string

const (
	SlotReasonTooShortNotice SlotReason = "too-short-notice"
	SlotReasonAlreadyBooked  SlotReason = "already-booked"
	SlotReasonLunchBreak     SlotReason = "lunch-break"
)

// Slot is one offered start time on a given date. Slots are computed
// fresh per request and never persisted.
type Slot struct {
	Time      string     `json:"time"`
	Available bool       `json:"available"`
	Reason    SlotReason `json:"reason,omitempty"`
}

// TrialSlotStepMinutes is the cursor step for trial templates. Trial
// windows span hours, so offering a start at every slot-duration
// boundary would produce a dense grid of mostly-conflicting starts.
const TrialSlotStepMinutes = 60

const (
	BlockReasonBankHoliday = "bank holiday"
	BlockReasonBlockedDate = "blocked date"
)

// GenerateSlots derives the bookable slots for one calendar date. It is
// a pure function of its inputs: the same template, blocks, date,
// booking set and clock always yield the same output. Unavailable slots
// are included with a reason so callers can render them greyed out.
//
// existing must hold the active bookings of the template's category
// whose scheduled time falls on date; inactive entries are ignored.
func GenerateSlots(cfg AvailabilityConfig, date time.Time, existing []Booking, now time.Time) (slots []Slot, blocked bool, blockReason string) {
	day := DateOf(date)

	if cfg.Blocks.IsBankHoliday(day) {
		return nil, true, BlockReasonBankHoliday
	}
	if cfg.Template.IsBlockedDate(day) {
		return nil, true, BlockReasonBlockedDate
	}

	windows := cfg.Template.Weekly.On(day.Weekday())
	if len(windows) == 0 {
		return nil, false, ""
	}

	durationMin := cfg.Template.SlotDurationMinutes
	stepMin := durationMin
	if cfg.Template.Category == CategoryTrial {
		stepMin = TrialSlotStepMinutes
	}

	duration := cfg.Template.SlotDuration()
	buffer := cfg.Template.Buffer()
	earliest := now.Add(cfg.Template.MinNotice())

	active := existing[:0:0]
	for _, b := range existing {
		if b.Status.Active() {
			active = append(active, b)
		}
	}

	for _, w := range windows {
		for cur := int(w.Start); cur+durationMin <= int(w.End); cur += stepMin + cfg.Template.BufferMinutes {
			tod := TimeOfDay(cur)
			slotStart := tod.At(day)
			slotEnd := slotStart.Add(duration)

			slot := Slot{Time: tod.String(), Available: true}
			switch {
			case slotStart.Before(earliest):
				slot.Available = false
				slot.Reason = SlotReasonTooShortNotice
			case hasConflict(active, slotStart, slotEnd, buffer):
				slot.Available = false
				slot.Reason = SlotReasonAlreadyBooked
			case inLunch(cfg, tod, TimeOfDay(cur+durationMin)):
				slot.Available = false
				slot.Reason = SlotReasonLunchBreak
			}
			slots = append(slots, slot)
		}
	}

	return slots, false, ""
}

func hasConflict(active []Booking, start, end time.Time, buffer time.Duration) bool {
	for _, b := range active {
		if b.Overlaps(start, end, buffer) {
			return true
		}
	}
	return false
}

// inLunch applies the lunch block to the interview category only; trial
// slots span the whole day and are exempt.
func inLunch(cfg AvailabilityConfig, slotStart, slotEnd TimeOfDay) bool {
	if cfg.Template.Category != CategoryInterview {
		return false
	}
	lunch := cfg.Blocks.Lunch
	if !lunch.Enabled {
		return false
	}
	return slotStart < lunch.End && slotEnd > lunch.Start
}
