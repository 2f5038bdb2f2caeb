// Package notify is the boundary to the confirmation/reminder
// collaborator. The scheduler only emits booking-committed events; all
// template rendering and delivery happens on the far side of this
// boundary and can never fail a commit.
package notify

import (
	"context"
	"log/slog"

	"hirebook/backend/internal/events"
)

type Service struct {
	log *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log.With(slog.String("component", "notify"))}
}

// Run consumes booking-committed events until ctx is cancelled. The
// current delivery target is the structured log; a mail/WhatsApp
// gateway slots in here without touching the scheduler.
func (s *Service) Run(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(events.EventBookingCommitted)
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch:
			s.log.Info("booking confirmation queued",
				slog.Any("booking_id", payload["booking_id"]),
				slog.Any("candidate_id", payload["candidate_id"]),
				slog.Any("category", payload["category"]),
				slog.Any("scheduled_start", payload["scheduled_start"]),
				slog.Any("confirmation_code", payload["confirmation_code"]),
			)
		}
	}
}
