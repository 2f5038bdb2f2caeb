// Package api exposes the booking scheduler over HTTP/JSON. The public
// booking surface is authorized purely by the one-time booking token in
// the URL; staff operations require a JWT with the staff role.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"hirebook/backend/internal/auth"
	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/service/booking"
)

type bookingService interface {
	GetAvailability(ctx context.Context, token string) (booking.AvailabilityOutput, error)
	GetSlots(ctx context.Context, token, date string) (booking.SlotsOutput, error)
	SubmitBooking(ctx context.Context, token, date, timeOfDay string) (booking.SubmitOutput, error)
	ResolveLapsed(ctx context.Context, id uuid.UUID, in booking.ResolveInput) error
}

type lifecycleService interface {
	SetCandidateStatus(ctx context.Context, id uuid.UUID, to domain.CandidateStatus) error
}

type Handler struct {
	bookings       bookingService
	lifecycle      lifecycleService
	jwtSecret      []byte
	requestTimeout time.Duration
	log            *slog.Logger
}

func NewHandler(bookings bookingService, lifecycle lifecycleService, jwtSecret []byte, requestTimeout time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Handler{
		bookings:       bookings,
		lifecycle:      lifecycle,
		jwtSecret:      jwtSecret,
		requestTimeout: requestTimeout,
		log:            log.With(slog.String("component", "api")),
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.requestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/booking/{token}", func(r chi.Router) {
			r.Get("/availability", h.getAvailability)
			r.Get("/slots", h.getSlots)
			r.Post("/", h.submitBooking)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireStaff(h.jwtSecret))
			r.Post("/interviews/{id}/resolve", h.resolveLapsed)
			r.Patch("/candidates/{id}/status", h.setCandidateStatus)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
