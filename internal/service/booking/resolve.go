package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/store"
)

// Resolution is a staff decision on a lapsed booking.
type Resolution string

const (
	ResolutionRescheduled Resolution = "rescheduled"
	ResolutionCompleted   Resolution = "completed"
	ResolutionCancelled   Resolution = "cancelled"
	ResolutionNoShow      Resolution = "no_show"
)

func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	switch r {
	case ResolutionRescheduled, ResolutionCompleted, ResolutionCancelled, ResolutionNoShow:
		return r, nil
	}
	return "", fmt.Errorf("unknown resolution %q", s)
}

func (r Resolution) bookingStatus() domain.BookingStatus {
	switch r {
	case ResolutionCompleted:
		return domain.BookingCompleted
	case ResolutionCancelled:
		return domain.BookingCancelled
	case ResolutionNoShow:
		return domain.BookingNoShow
	}
	return domain.BookingScheduled
}

type ResolveInput struct {
	Resolution Resolution
	Notes      string
	NewStart   *time.Time
}

// ResolveLapsed applies a manual resolution to a lapsed booking.
// Rescheduling re-enters the booking into the active conflict-detection
// population, so it runs through the same per-day transaction and
// overlap checks as a fresh commit.
func (s *Service) ResolveLapsed(ctx context.Context, id uuid.UUID, in ResolveInput) error {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingLapsed {
		return validationError("booking is not lapsed")
	}

	if in.Resolution != ResolutionRescheduled {
		to := in.Resolution.bookingStatus()
		if !domain.TransitionAllowed(b.Status, to) {
			return validationError("resolution not allowed for this booking")
		}
		if err := s.bookings.SetResolution(ctx, id, domain.BookingLapsed, to, in.Notes); err != nil {
			if errors.Is(err, store.ErrStaleStatus) {
				return validationError("booking was already resolved")
			}
			return err
		}
		s.log.Info("lapsed booking resolved",
			slog.String("booking_id", id.String()),
			slog.String("resolution", string(in.Resolution)),
		)
		return nil
	}

	if in.NewStart == nil {
		return validationError("rescheduling requires a new date")
	}
	start := in.NewStart.UTC()
	now := s.now().UTC()
	if !start.After(now) {
		return validationError("new date must be in the future")
	}

	cfg, err := s.config(ctx, b.Category)
	if err != nil {
		return err
	}

	day := domain.DateOf(start)
	end := start.Add(time.Duration(b.DurationMinutes) * time.Minute)
	tod := domain.TimeOfDay(start.Sub(day) / time.Minute)

	err = s.bookings.InSlotTransaction(ctx, b.Category, day, func(ctx context.Context, tx store.SlotTx) error {
		if cfg.Blocks.IsBankHoliday(day) || cfg.Template.IsBlockedDate(day) {
			return validationError("that date is not bookable")
		}

		active, err := tx.ListActiveBookings(ctx, b.Category, day, day.Add(24*time.Hour))
		if err != nil {
			return err
		}
		for _, other := range active {
			if other.ID == b.ID {
				continue
			}
			if other.Overlaps(start, end, cfg.Template.Buffer()) {
				return conflictError("that time is already taken")
			}
		}

		if err := tx.RescheduleBooking(ctx, b.ID, start, in.Notes); err != nil {
			if errors.Is(err, store.ErrStaleStatus) {
				return validationError("booking was already resolved")
			}
			return err
		}

		if _, err := tx.CreateSlotLock(ctx, domain.SlotLock{
			Category:  b.Category,
			SlotDate:  day,
			SlotTime:  tod.String(),
			BookingID: b.ID,
		}); err != nil && !errors.Is(err, store.ErrConflict) {
			// a stale lock from an inactive booking may already sit
			// on this key; the overlap scan above is authoritative
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("lapsed booking rescheduled",
		slog.String("booking_id", id.String()),
		slog.Time("scheduled_start", start),
	)
	return nil
}
