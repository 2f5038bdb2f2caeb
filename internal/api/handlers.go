package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/service/booking"
	"hirebook/backend/internal/store"
)

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "getAvailability"))

	out, err := h.bookings.GetAvailability(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getSlots(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "getSlots"))

	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("date query parameter is required"))
		return
	}

	out, err := h.bookings.GetSlots(r.Context(), chi.URLParam(r, "token"), date)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type submitBookingRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *Handler) submitBooking(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "submitBooking"))

	var req submitBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request body must be JSON with date and time"))
		return
	}

	out, err := h.bookings.SubmitBooking(r.Context(), chi.URLParam(r, "token"), req.Date, req.Time)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("booking submitted",
		slog.String("booking_id", out.BookingID.String()),
		slog.String("date", req.Date),
		slog.String("time", req.Time),
	)
	writeJSON(w, http.StatusCreated, out)
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
	NewDate    string `json:"newDate,omitempty"`
}

func (h *Handler) resolveLapsed(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "resolveLapsed"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("booking id must be a UUID"))
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request body must be JSON"))
		return
	}

	resolution, err := booking.ParseResolution(req.Resolution)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	in := booking.ResolveInput{Resolution: resolution, Notes: req.Notes}
	if req.NewDate != "" {
		start, err := time.Parse("2006-01-02T15:04", req.NewDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("newDate must be formatted YYYY-MM-DDTHH:MM"))
			return
		}
		start = start.UTC()
		in.NewStart = &start
	}

	if err := h.bookings.ResolveLapsed(r.Context(), id, in); err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("lapsed booking resolved",
		slog.String("booking_id", id.String()),
		slog.String("resolution", req.Resolution),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

type candidateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setCandidateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "setCandidateStatus"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("candidate id must be a UUID"))
		return
	}

	var req candidateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request body must be JSON"))
		return
	}

	status, err := domain.ParseCandidateStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := h.lifecycle.SetCandidateStatus(r.Context(), id, status); err != nil {
		h.writeError(w, log, err)
		return
	}

	log.Info("candidate status set",
		slog.String("candidate_id", id.String()),
		slog.String("status", req.Status),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// writeError maps the service error taxonomy onto HTTP. Token and
// lookup failures collapse into one generic 404 so callers cannot probe
// for valid tokens.
func (h *Handler) writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorBody(vErr.Error()))
		return
	}
	var cErr *booking.ConflictError
	if errors.As(err, &cErr) {
		log.Info("booking conflict", slog.String("reason", cErr.Error()))
		writeJSON(w, http.StatusConflict, errorBody("That time was just taken. Please pick another slot."))
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	log.Error("request failed", slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
