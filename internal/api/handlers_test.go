package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"hirebook/backend/internal/auth"
	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/service/booking"
	"hirebook/backend/internal/store"
)

type fakeBookings struct {
	getAvailability func(ctx context.Context, token string) (booking.AvailabilityOutput, error)
	getSlots        func(ctx context.Context, token, date string) (booking.SlotsOutput, error)
	submitBooking   func(ctx context.Context, token, date, timeOfDay string) (booking.SubmitOutput, error)
	resolveLapsed   func(ctx context.Context, id uuid.UUID, in booking.ResolveInput) error
}

func (f *fakeBookings) GetAvailability(ctx context.Context, token string) (booking.AvailabilityOutput, error) {
	if f.getAvailability == nil {
		panic("GetAvailability not configured")
	}
	return f.getAvailability(ctx, token)
}

func (f *fakeBookings) GetSlots(ctx context.Context, token, date string) (booking.SlotsOutput, error) {
	if f.getSlots == nil {
		panic("GetSlots not configured")
	}
	return f.getSlots(ctx, token, date)
}

func (f *fakeBookings) SubmitBooking(ctx context.Context, token, date, timeOfDay string) (booking.SubmitOutput, error) {
	if f.submitBooking == nil {
		panic("SubmitBooking not configured")
	}
	return f.submitBooking(ctx, token, date, timeOfDay)
}

func (f *fakeBookings) ResolveLapsed(ctx context.Context, id uuid.UUID, in booking.ResolveInput) error {
	if f.resolveLapsed == nil {
		panic("ResolveLapsed not configured")
	}
	return f.resolveLapsed(ctx, id, in)
}

type fakeLifecycle struct {
	setCandidateStatus func(ctx context.Context, id uuid.UUID, to domain.CandidateStatus) error
}

func (f *fakeLifecycle) SetCandidateStatus(ctx context.Context, id uuid.UUID, to domain.CandidateStatus) error {
	if f.setCandidateStatus == nil {
		panic("SetCandidateStatus not configured")
	}
	return f.setCandidateStatus(ctx, id, to)
}

var testSecret = []byte("test-secret")

func newTestRouter(bookings *fakeBookings, lifecycle *fakeLifecycle) http.Handler {
	return NewHandler(bookings, lifecycle, testSecret, 0, nil).Router()
}

func staffToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, auth.Claims{UserID: "staff-1", Roles: []string{auth.RoleStaff}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	decoded := map[string]any{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response %q is not JSON: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func TestGetSlots(t *testing.T) {
	bookings := &fakeBookings{
		getSlots: func(ctx context.Context, token, date string) (booking.SlotsOutput, error) {
			if token != "tok-1" || date != "2026-09-14" {
				t.Fatalf("args = %q %q", token, date)
			}
			return booking.SlotsOutput{
				Date:  date,
				Slots: []domain.Slot{{Time: "09:00", Available: true}},
			}, nil
		},
	}
	router := newTestRouter(bookings, &fakeLifecycle{})

	rr, body := doJSON(t, router, http.MethodGet, "/api/v1/booking/tok-1/slots?date=2026-09-14", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rr.Code, body)
	}
	if body["date"] != "2026-09-14" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetSlots_MissingDate(t *testing.T) {
	router := newTestRouter(&fakeBookings{}, &fakeLifecycle{})

	rr, _ := doJSON(t, router, http.MethodGet, "/api/v1/booking/tok-1/slots", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGetSlots_UnknownTokenIsGeneric404(t *testing.T) {
	bookings := &fakeBookings{
		getSlots: func(ctx context.Context, token, date string) (booking.SlotsOutput, error) {
			return booking.SlotsOutput{}, store.ErrNotFound
		},
	}
	router := newTestRouter(bookings, &fakeLifecycle{})

	rr, body := doJSON(t, router, http.MethodGet, "/api/v1/booking/expired/slots?date=2026-09-14", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if body["error"] != "not found" {
		t.Fatalf("error = %v, want the generic message", body["error"])
	}
}

func TestSubmitBooking(t *testing.T) {
	id := uuid.New()
	bookings := &fakeBookings{
		submitBooking: func(ctx context.Context, token, date, timeOfDay string) (booking.SubmitOutput, error) {
			if token != "tok-1" || date != "2026-09-14" || timeOfDay != "10:30" {
				t.Fatalf("args = %q %q %q", token, date, timeOfDay)
			}
			return booking.SubmitOutput{
				BookingID:        id,
				ConfirmationCode: "ABCD2345",
				MeetingLink:      "https://meet.example/ABCD2345",
			}, nil
		},
	}
	router := newTestRouter(bookings, &fakeLifecycle{})

	rr, body := doJSON(t, router, http.MethodPost, "/api/v1/booking/tok-1",
		"", `{"date":"2026-09-14","time":"10:30"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %v", rr.Code, body)
	}
	if body["bookingId"] != id.String() || body["confirmationCode"] != "ABCD2345" {
		t.Fatalf("body = %v", body)
	}
}

func TestSubmitBooking_Conflict(t *testing.T) {
	bookings := &fakeBookings{
		submitBooking: func(ctx context.Context, token, date, timeOfDay string) (booking.SubmitOutput, error) {
			return booking.SubmitOutput{}, booking.NewConflictError("that slot was just taken")
		},
	}
	router := newTestRouter(bookings, &fakeLifecycle{})

	rr, body := doJSON(t, router, http.MethodPost, "/api/v1/booking/tok-1",
		"", `{"date":"2026-09-14","time":"10:30"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	if body["error"] != "That time was just taken. Please pick another slot." {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestSubmitBooking_ValidationMessagePassedThrough(t *testing.T) {
	bookings := &fakeBookings{
		submitBooking: func(ctx context.Context, token, date, timeOfDay string) (booking.SubmitOutput, error) {
			return booking.SubmitOutput{}, booking.NewValidationError("date is in the past")
		},
	}
	router := newTestRouter(bookings, &fakeLifecycle{})

	rr, body := doJSON(t, router, http.MethodPost, "/api/v1/booking/tok-1",
		"", `{"date":"2020-01-01","time":"10:30"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if body["error"] != "date is in the past" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestSubmitBooking_MalformedBody(t *testing.T) {
	router := newTestRouter(&fakeBookings{}, &fakeLifecycle{})

	rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/booking/tok-1", "", "{date}")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestStaffRoutesRequireJWT(t *testing.T) {
	router := newTestRouter(&fakeBookings{}, &fakeLifecycle{})
	id := uuid.New()

	t.Run("no token", func(t *testing.T) {
		rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/interviews/"+id.String()+"/resolve",
			"", `{"resolution":"completed"}`)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		tok, err := auth.Issue(testSecret, auth.Claims{UserID: "u1", Roles: []string{"candidate"}}, time.Hour)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/interviews/"+id.String()+"/resolve",
			tok, `{"resolution":"completed"}`)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := auth.Issue([]byte("other-secret"), auth.Claims{UserID: "u1", Roles: []string{auth.RoleStaff}}, time.Hour)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/interviews/"+id.String()+"/resolve",
			tok, `{"resolution":"completed"}`)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})
}

func TestResolveLapsed(t *testing.T) {
	id := uuid.New()
	var got booking.ResolveInput
	bookings := &fakeBookings{
		resolveLapsed: func(ctx context.Context, gotID uuid.UUID, in booking.ResolveInput) error {
			if gotID != id {
				t.Fatalf("id = %s, want %s", gotID, id)
			}
			got = in
			return nil
		},
	}
	router := newTestRouter(bookings, &fakeLifecycle{})

	rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/interviews/"+id.String()+"/resolve",
		staffToken(t), `{"resolution":"rescheduled","notes":"agreed by phone","newDate":"2026-09-21T14:00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got.Resolution != booking.ResolutionRescheduled || got.Notes != "agreed by phone" {
		t.Fatalf("input = %+v", got)
	}
	want := time.Date(2026, 9, 21, 14, 0, 0, 0, time.UTC)
	if got.NewStart == nil || !got.NewStart.Equal(want) {
		t.Fatalf("NewStart = %v, want %v", got.NewStart, want)
	}
}

func TestResolveLapsed_BadInput(t *testing.T) {
	router := newTestRouter(&fakeBookings{}, &fakeLifecycle{})
	id := uuid.New()

	cases := []struct {
		name, path, body string
	}{
		{"bad uuid", "/api/v1/interviews/not-a-uuid/resolve", `{"resolution":"completed"}`},
		{"bad resolution", "/api/v1/interviews/" + id.String() + "/resolve", `{"resolution":"shredded"}`},
		{"bad new date", "/api/v1/interviews/" + id.String() + "/resolve", `{"resolution":"rescheduled","newDate":"21/09/2026"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, _ := doJSON(t, router, http.MethodPost, tc.path, staffToken(t), tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestSetCandidateStatus(t *testing.T) {
	id := uuid.New()
	lifecycle := &fakeLifecycle{
		setCandidateStatus: func(ctx context.Context, gotID uuid.UUID, to domain.CandidateStatus) error {
			if gotID != id || to != domain.CandidateWithdrawn {
				t.Fatalf("args = %s %s", gotID, to)
			}
			return nil
		},
	}
	router := newTestRouter(&fakeBookings{}, lifecycle)

	rr, body := doJSON(t, router, http.MethodPatch, "/api/v1/candidates/"+id.String()+"/status",
		staffToken(t), `{"status":"withdrawn"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rr.Code, body)
	}
	if body["status"] != "withdrawn" {
		t.Fatalf("body = %v", body)
	}
}

func TestSetCandidateStatus_UnknownStatus(t *testing.T) {
	router := newTestRouter(&fakeBookings{}, &fakeLifecycle{})
	id := uuid.New()

	rr, _ := doJSON(t, router, http.MethodPatch, "/api/v1/candidates/"+id.String()+"/status",
		staffToken(t), `{"status":"ghosted"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&fakeBookings{}, &fakeLifecycle{})

	rr, body := doJSON(t, router, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
}
