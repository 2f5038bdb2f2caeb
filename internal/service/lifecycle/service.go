// Package lifecycle ages committed bookings as time passes and keeps
// candidate and booking state consistent. Two drivers mutate bookings:
// the ticker-driven sweep and the candidate-status cascade. Both go
// through the domain transition table, and every per-booking update is
// isolated: one failure is logged and never aborts the rest of a run.
package lifecycle

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

// DefaultFeedbackWindow is how long after the scheduled start a booking
// waits for feedback before lapsing.
const DefaultFeedbackWindow = 48 * time.Hour

const DefaultSweepInterval = 4 * time.Hour

type Options struct {
	SweepInterval  time.Duration
	FeedbackWindow time.Duration
	Now            func() time.Time
}

type Service struct {
	bookings   store.BookingRepository
	candidates store.CandidateRepository
	bus        *events.Bus
	log        *slog.Logger

	interval       time.Duration
	feedbackWindow time.Duration
	now            func() time.Time
}

func NewService(bookings store.BookingRepository, candidates store.CandidateRepository, bus *events.Bus, log *slog.Logger, opts Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.FeedbackWindow <= 0 {
		opts.FeedbackWindow = DefaultFeedbackWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		bookings:       bookings,
		candidates:     candidates,
		bus:            bus,
		log:            log.With(slog.String("component", "lifecycle")),
		interval:       opts.SweepInterval,
		feedbackWindow: opts.FeedbackWindow,
		now:            opts.Now,
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	swept, failed, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error("sweep failed", slog.Any("err", err))
		return
	}
	if swept > 0 || failed > 0 {
		s.log.Info("sweep finished", slog.Int("swept", swept), slog.Int("failed", failed))
	}
}

// SweepOnce transitions every active booking whose scheduled start is in
// the past. Returns how many bookings were transitioned and how many
// individual updates failed.
func (s *Service) SweepOnce(ctx context.Context) (swept, failed int, err error) {
	now := s.now().UTC()
	due, err := s.bookings.ListDue(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	for _, b := range due {
		if err := s.sweepBooking(ctx, b, now); err != nil {
			failed++
			s.log.Error("booking sweep failed",
				slog.Any("err", err),
				slog.String("booking_id", b.ID.String()),
			)
			continue
		}
		swept++
	}
	return swept, failed, nil
}

func (s *Service) sweepBooking(ctx context.Context, b domain.Booking, now time.Time) error {
	cand, err := s.candidates.Get(ctx, b.CandidateID)
	if err != nil {
		return err
	}

	switch {
	case cand.Status.Settled():
		// the candidate already moved on; asking for feedback on
		// this booking is moot
		return s.transition(ctx, b, domain.BookingResolved)

	case now.Sub(b.ScheduledStart) < s.feedbackWindow:
		if err := s.transition(ctx, b, domain.BookingPendingFeedback); err != nil {
			return err
		}
		next := domain.CompletionStatus(b.Category)
		if !domain.IsForwardMove(cand.Status, next) {
			// a backward or sideways move would clobber a manual
			// staff decision made in the interim
			return nil
		}
		if err := s.candidates.UpdateStatus(ctx, cand.ID, cand.Status, next); err != nil {
			if errors.Is(err, store.ErrStaleStatus) {
				return nil
			}
			return err
		}
		s.log.Info("candidate advanced",
			slog.String("candidate_id", cand.ID.String()),
			slog.String("status", string(next)),
		)
		return nil

	default:
		return s.transition(ctx, b, domain.BookingLapsed)
	}
}

func (s *Service) transition(ctx context.Context, b domain.Booking, to domain.BookingStatus) error {
	if b.Status == to {
		return nil
	}
	if !domain.TransitionAllowed(b.Status, to) {
		return nil
	}
	if err := s.bookings.TransitionStatus(ctx, b.ID, b.Status, to); err != nil {
		return err
	}
	s.log.Info("booking transitioned",
		slog.String("booking_id", b.ID.String()),
		slog.String("from", string(b.Status)),
		slog.String("to", string(to)),
	)
	return nil
}

// SetCandidateStatus writes a candidate status and runs the cascade on
// dependent bookings.
func (s *Service) SetCandidateStatus(ctx context.Context, id uuid.UUID, to domain.CandidateStatus) error {
	cand, err := s.candidates.Get(ctx, id)
	if err != nil {
		return err
	}
	if cand.Status != to {
		if err := s.candidates.UpdateStatus(ctx, id, cand.Status, to); err != nil {
			return err
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.EventCandidateStatusChanged, events.Payload{
			"candidate_id": id.String(),
			"status":       string(to),
		})
	}

	return s.Cascade(ctx, id, to)
}

// Cascade reacts to a candidate status write. A settled status resolves
// the candidate's lapsed bookings; withdrawn/rejected additionally
// cancels still-scheduled ones so they stop blocking capacity.
// Idempotent: rerunning after a redelivered trigger is a no-op.
func (s *Service) Cascade(ctx context.Context, candidateID uuid.UUID, status domain.CandidateStatus) error {
	if !status.Settled() {
		return nil
	}

	lapsed, err := s.bookings.ListForCandidate(ctx, candidateID, domain.BookingLapsed)
	if err != nil {
		return err
	}
	for _, b := range lapsed {
		if err := s.transition(ctx, b, domain.BookingResolved); err != nil {
			s.log.Error("cascade resolve failed",
				slog.Any("err", err),
				slog.String("booking_id", b.ID.String()),
			)
		}
	}

	if status != domain.CandidateWithdrawn && status != domain.CandidateRejected {
		return nil
	}

	scheduled, err := s.bookings.ListForCandidate(ctx, candidateID, domain.BookingScheduled)
	if err != nil {
		return err
	}
	for _, b := range scheduled {
		if err := s.transition(ctx, b, domain.BookingCancelled); err != nil {
			s.log.Error("cascade cancel failed",
				slog.Any("err", err),
				slog.String("booking_id", b.ID.String()),
			)
		}
	}
	return nil
}
