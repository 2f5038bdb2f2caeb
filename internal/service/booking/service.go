package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/events"
	"hirebook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError builds a candidate-facing input error.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationError(msg string) error {
	return NewValidationError(msg)
}

// ConflictError means the slot was taken between display and commit; the
// caller should re-fetch slots and pick another time.
type ConflictError struct {
	msg string
}

func (e *ConflictError) Error() string {
	return e.msg
}

func NewConflictError(msg string) *ConflictError {
	return &ConflictError{msg: msg}
}

func conflictError(msg string) error {
	return NewConflictError(msg)
}

// MeetingProvisioner is the video-conferencing collaborator. Failures
// here degrade the booking (no link), never fail it.
type MeetingProvisioner interface {
	Provision(ctx context.Context, b domain.Booking) (string, error)
}

const sideEffectTimeout = 10 * time.Second

type Options struct {
	// FullDayThreshold is the active-booking count from which a date
	// is reported fully booked on the calendar summary. The summary
	// is advisory; acceptance is decided by the commit transaction.
	FullDayThreshold int
	Now              func() time.Time
}

type Service struct {
	bookings     store.BookingRepository
	tokens       store.TokenRepository
	availability store.AvailabilityStore
	provisioner  MeetingProvisioner
	bus          *events.Bus
	log          *slog.Logger

	fullDayThreshold int
	now              func() time.Time
}

func NewService(
	bookings store.BookingRepository,
	tokens store.TokenRepository,
	availability store.AvailabilityStore,
	provisioner MeetingProvisioner,
	bus *events.Bus,
	log *slog.Logger,
	opts Options,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FullDayThreshold <= 0 {
		opts.FullDayThreshold = 6
	}
	return &Service{
		bookings:         bookings,
		tokens:           tokens,
		availability:     availability,
		provisioner:      provisioner,
		bus:              bus,
		log:              log.With(slog.String("component", "booking")),
		fullDayThreshold: opts.FullDayThreshold,
		now:              opts.Now,
	}
}

func (s *Service) config(ctx context.Context, category domain.Category) (domain.AvailabilityConfig, error) {
	tpl, err := s.availability.Template(ctx, category)
	if err != nil {
		return domain.AvailabilityConfig{}, err
	}
	blocks, err := s.availability.Blocks(ctx)
	if err != nil {
		return domain.AvailabilityConfig{}, err
	}
	return domain.AvailabilityConfig{Template: tpl, Blocks: blocks}, nil
}

// resolveToken maps any unusable token to ErrNotFound so callers cannot
// distinguish expired from never-issued.
func (s *Service) resolveToken(ctx context.Context, token string) (domain.BookingToken, error) {
	tok, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return domain.BookingToken{}, err
	}
	if !tok.Usable(s.now().UTC()) {
		return domain.BookingToken{}, store.ErrNotFound
	}
	return tok, nil
}

type SlotsOutput struct {
	Date        string        `json:"date"`
	Slots       []domain.Slot `json:"slots"`
	Blocked     bool          `json:"blocked,omitempty"`
	BlockReason string        `json:"blockReason,omitempty"`
}

func (s *Service) GetSlots(ctx context.Context, token, date string) (SlotsOutput, error) {
	tok, err := s.resolveToken(ctx, token)
	if err != nil {
		return SlotsOutput{}, err
	}

	day, err := domain.ParseDate(date)
	if err != nil {
		return SlotsOutput{}, validationError("date must be formatted YYYY-MM-DD")
	}

	cfg, err := s.config(ctx, tok.Category)
	if err != nil {
		return SlotsOutput{}, err
	}

	now := s.now().UTC()
	if err := checkBookingWindow(day, now, cfg.Template.AdvanceBookingDays); err != nil {
		return SlotsOutput{}, err
	}

	existing, err := s.bookings.ListActiveBookings(ctx, tok.Category, day, day.Add(24*time.Hour))
	if err != nil {
		return SlotsOutput{}, err
	}

	slots, blocked, reason := domain.GenerateSlots(cfg, day, existing, now)
	return SlotsOutput{
		Date:        day.Format("2006-01-02"),
		Slots:       slots,
		Blocked:     blocked,
		BlockReason: reason,
	}, nil
}

type AvailabilityOutput struct {
	Weekly             domain.WeeklySchedule `json:"weeklyTemplate"`
	AdvanceBookingDays int                   `json:"advanceBookingDays"`
	MinNoticeHours     int                   `json:"minNoticeHours"`
	FullyBookedDates   []string              `json:"fullyBookedDates"`
	BlockedDates       []string              `json:"blockedDates"`
}

// GetAvailability is the month-granularity calendar summary. Fully
// booked is a count heuristic, not a slot-level guarantee.
func (s *Service) GetAvailability(ctx context.Context, token string) (AvailabilityOutput, error) {
	tok, err := s.resolveToken(ctx, token)
	if err != nil {
		return AvailabilityOutput{}, err
	}

	cfg, err := s.config(ctx, tok.Category)
	if err != nil {
		return AvailabilityOutput{}, err
	}

	today := domain.DateOf(s.now())
	horizon := today.AddDate(0, 0, cfg.Template.AdvanceBookingDays+1)

	counts, err := s.bookings.CountActiveByDay(ctx, tok.Category, today, horizon)
	if err != nil {
		return AvailabilityOutput{}, err
	}

	fullyBooked := make([]string, 0, len(counts))
	for day := today; day.Before(horizon); day = day.AddDate(0, 0, 1) {
		if counts[day.Format("2006-01-02")] >= s.fullDayThreshold {
			fullyBooked = append(fullyBooked, day.Format("2006-01-02"))
		}
	}

	blockedSet := make(map[string]struct{})
	for _, d := range cfg.Template.BlockedDates {
		blockedSet[domain.DateOf(d).Format("2006-01-02")] = struct{}{}
	}
	for _, d := range cfg.Blocks.BankHolidays {
		blockedSet[domain.DateOf(d).Format("2006-01-02")] = struct{}{}
	}
	blocked := make([]string, 0, len(blockedSet))
	for day := today; day.Before(horizon); day = day.AddDate(0, 0, 1) {
		if _, ok := blockedSet[day.Format("2006-01-02")]; ok {
			blocked = append(blocked, day.Format("2006-01-02"))
		}
	}

	return AvailabilityOutput{
		Weekly:             cfg.Template.Weekly,
		AdvanceBookingDays: cfg.Template.AdvanceBookingDays,
		MinNoticeHours:     cfg.Template.MinNoticeHours,
		FullyBookedDates:   fullyBooked,
		BlockedDates:       blocked,
	}, nil
}

type SubmitOutput struct {
	BookingID        uuid.UUID `json:"bookingId"`
	ConfirmationCode string    `json:"confirmationCode"`
	MeetingLink      string    `json:"meetingLink,omitempty"`
}

// SubmitBooking commits a booking atomically: token re-validation, date
// re-validation, exact slot-lock check and buffered overlap scan all run
// inside one transaction serialized per (category, date). Either the
// booking, its slot lock and the token use land together, or nothing
// does.
func (s *Service) SubmitBooking(ctx context.Context, token, date, timeOfDay string) (SubmitOutput, error) {
	tok, err := s.resolveToken(ctx, token)
	if err != nil {
		return SubmitOutput{}, err
	}

	day, err := domain.ParseDate(date)
	if err != nil {
		return SubmitOutput{}, validationError("date must be formatted YYYY-MM-DD")
	}
	tod, err := domain.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return SubmitOutput{}, validationError("time must be formatted HH:MM")
	}

	cfg, err := s.config(ctx, tok.Category)
	if err != nil {
		return SubmitOutput{}, err
	}

	now := s.now().UTC()
	if err := checkBookingWindow(day, now, cfg.Template.AdvanceBookingDays); err != nil {
		return SubmitOutput{}, err
	}

	start := tod.At(day)
	if !start.After(now) {
		return SubmitOutput{}, validationError("that time has already passed")
	}

	durationMin := tok.DurationMinutes
	if durationMin <= 0 {
		durationMin = cfg.Template.SlotDurationMinutes
	}
	end := start.Add(time.Duration(durationMin) * time.Minute)

	var committed domain.Booking
	err = s.bookings.InSlotTransaction(ctx, tok.Category, day, func(ctx context.Context, tx store.SlotTx) error {
		// settings or the token may have changed between slot
		// display and commit; everything is re-checked here
		fresh, err := tx.GetTokenForUpdate(ctx, tok.Token)
		if err != nil {
			return err
		}
		if !fresh.Usable(now) {
			return validationError("this booking link is no longer valid")
		}

		if cfg.Blocks.IsBankHoliday(day) || cfg.Template.IsBlockedDate(day) {
			return validationError("that date is not bookable")
		}
		if !withinWindows(cfg.Template.Weekly.On(day.Weekday()), tod, durationMin) {
			return validationError("that time is outside bookable hours")
		}
		if tok.Category == domain.CategoryInterview && cfg.Blocks.Lunch.Enabled {
			if tod < cfg.Blocks.Lunch.End && tod+domain.TimeOfDay(durationMin) > cfg.Blocks.Lunch.Start {
				return validationError("that time falls in the lunch break")
			}
		}

		// exact-match lock: O(1) catch for the common race
		lock, err := tx.GetSlotLock(ctx, tok.Category, day, tod.String())
		if err == nil {
			owner, err := tx.GetBooking(ctx, lock.BookingID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err == nil && owner.Status.Active() {
				return conflictError("that slot was just taken")
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		// overlap scan: correctness backstop for near-miss overlaps
		// and bookings created without a lock
		active, err := tx.ListActiveBookings(ctx, tok.Category, day, day.Add(24*time.Hour))
		if err != nil {
			return err
		}
		for _, b := range active {
			if b.Overlaps(start, end, cfg.Template.Buffer()) {
				return conflictError("that slot was just taken")
			}
		}

		code, err := domain.NewConfirmationCode()
		if err != nil {
			return err
		}

		created, err := tx.CreateBooking(ctx, domain.Booking{
			Category:         tok.Category,
			CandidateID:      fresh.CandidateID,
			ScheduledStart:   start,
			DurationMinutes:  durationMin,
			Status:           domain.BookingScheduled,
			ConfirmationCode: code,
			CreatedVia:       domain.CreatedViaSelfService,
		})
		if err != nil {
			return err
		}

		if _, err := tx.CreateSlotLock(ctx, domain.SlotLock{
			Category:  tok.Category,
			SlotDate:  day,
			SlotTime:  tod.String(),
			BookingID: created.ID,
		}); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return conflictError("that slot was just taken")
			}
			return err
		}

		if err := tx.IncrementTokenUses(ctx, fresh.Token); err != nil {
			if errors.Is(err, store.ErrTokenExhausted) {
				return validationError("this booking link is no longer valid")
			}
			return err
		}

		committed = created
		return nil
	})
	if err != nil {
		return SubmitOutput{}, err
	}

	s.log.Info("booking committed",
		slog.String("booking_id", committed.ID.String()),
		slog.String("candidate_id", committed.CandidateID.String()),
		slog.String("category", string(committed.Category)),
		slog.Time("scheduled_start", committed.ScheduledStart),
	)

	link := s.dispatchSideEffects(committed)

	return SubmitOutput{
		BookingID:        committed.ID,
		ConfirmationCode: committed.ConfirmationCode,
		MeetingLink:      link,
	}, nil
}

// dispatchSideEffects runs the best-effort post-commit work: meeting
// provisioning for interviews and the booking-committed event. A failure
// here leaves a degraded but successful booking.
func (s *Service) dispatchSideEffects(b domain.Booking) string {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	var link string
	if b.Category == domain.CategoryInterview && s.provisioner != nil {
		l, err := s.provisioner.Provision(ctx, b)
		if err != nil {
			s.log.Warn("meeting provisioning failed",
				slog.Any("err", err),
				slog.String("booking_id", b.ID.String()),
			)
		} else {
			link = l
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.EventBookingCommitted, events.Payload{
			"booking_id":        b.ID.String(),
			"candidate_id":      b.CandidateID.String(),
			"category":          string(b.Category),
			"scheduled_start":   b.ScheduledStart,
			"confirmation_code": b.ConfirmationCode,
		})
	}

	notifiedAt := s.now().UTC()
	if err := s.bookings.RecordSideEffects(ctx, b.ID, link, &notifiedAt); err != nil {
		s.log.Warn("recording side effects failed",
			slog.Any("err", err),
			slog.String("booking_id", b.ID.String()),
		)
	}

	return link
}

// withinWindows reports whether a slot of durationMin starting at tod
// fits entirely inside one of the day's bookable windows. Hand-crafted
// requests bypass the slot list, so the commit re-checks membership.
func withinWindows(windows []domain.TimeWindow, tod domain.TimeOfDay, durationMin int) bool {
	for _, w := range windows {
		if tod >= w.Start && tod+domain.TimeOfDay(durationMin) <= w.End {
			return true
		}
	}
	return false
}

func checkBookingWindow(day time.Time, now time.Time, advanceDays int) error {
	today := domain.DateOf(now)
	if day.Before(today) {
		return validationError("date is in the past")
	}
	if advanceDays > 0 && day.After(today.AddDate(0, 0, advanceDays)) {
		return validationError("date is beyond the booking window")
	}
	return nil
}
