package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hirebook/backend/internal/domain"
)

// SlotTx is the unit of work for committing a booking. Every method runs
// inside one Postgres transaction serialized per (category, date) by an
// advisory lock, so two commits for overlapping intervals can never both
// pass their conflict checks.
type SlotTx interface {
	GetTokenForUpdate(ctx context.Context, token string) (domain.BookingToken, error)
	IncrementTokenUses(ctx context.Context, token string) error

	GetSlotLock(ctx context.Context, category domain.Category, day time.Time, slotTime string) (domain.SlotLock, error)
	CreateSlotLock(ctx context.Context, lock domain.SlotLock) (domain.SlotLock, error)

	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListActiveBookings(ctx context.Context, category domain.Category, dayStart, dayEnd time.Time) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	RescheduleBooking(ctx context.Context, id uuid.UUID, start time.Time, notes string) error
}

type BookingRepository interface {
	// InSlotTransaction runs fn inside a transaction holding the
	// advisory lock for (category, day).
	InSlotTransaction(ctx context.Context, category domain.Category, day time.Time, fn func(ctx context.Context, tx SlotTx) error) error

	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListActiveBookings(ctx context.Context, category domain.Category, dayStart, dayEnd time.Time) ([]domain.Booking, error)

	// CountActiveByDay returns active bookings per calendar date
	// (keys formatted 2006-01-02) within [from, to).
	CountActiveByDay(ctx context.Context, category domain.Category, from, to time.Time) (map[string]int, error)

	// ListDue returns active bookings whose scheduled start is before
	// cutoff, ordered by start time.
	ListDue(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
	ListForCandidate(ctx context.Context, candidateID uuid.UUID, statuses ...domain.BookingStatus) ([]domain.Booking, error)

	// TransitionStatus moves a booking from -> to. It is idempotent:
	// a booking already in to is a no-op. A booking in any other
	// state fails with ErrStaleStatus.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) error

	// SetResolution applies a terminal manual resolution with notes.
	SetResolution(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, notes string) error

	// RecordSideEffects stores post-commit provisioning outcomes.
	// Best-effort bookkeeping; never part of the commit transaction.
	RecordSideEffects(ctx context.Context, id uuid.UUID, meetingLink string, notifiedAt *time.Time) error
}

type TokenRepository interface {
	Resolve(ctx context.Context, token string) (domain.BookingToken, error)
}

type CandidateRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Candidate, error)

	// UpdateStatus moves a candidate from -> to, compare-and-set. A
	// candidate already in to is a no-op.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.CandidateStatus) error
}

// AvailabilityStore reads the staff-configured schedule settings. They
// are read live per request; the scheduler never caches them.
type AvailabilityStore interface {
	Template(ctx context.Context, category domain.Category) (domain.AvailabilityTemplate, error)
	Blocks(ctx context.Context) (domain.GlobalBlocks, error)
}
