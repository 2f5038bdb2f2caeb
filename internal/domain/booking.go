package domain

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Category string

const (
	CategoryInterview Category = "interview"
	CategoryTrial     Category = "trial"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryInterview, CategoryTrial:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown booking category %q", s)
}

type BookingStatus string

const (
	BookingScheduled       BookingStatus = "scheduled"
	BookingConfirmed       BookingStatus = "confirmed"
	BookingCompleted       BookingStatus = "completed"
	BookingPendingFeedback BookingStatus = "pending_feedback"
	BookingLapsed          BookingStatus = "lapsed"
	BookingResolved        BookingStatus = "resolved"
	BookingCancelled       BookingStatus = "cancelled"
	BookingNoShow          BookingStatus = "no_show"
)

// ActiveBookingStatuses are the statuses that occupy capacity and take
// part in conflict detection.
var ActiveBookingStatuses = []BookingStatus{BookingScheduled, BookingConfirmed}

func (s BookingStatus) Active() bool {
	return s == BookingScheduled || s == BookingConfirmed
}

type CreatedVia string

const (
	CreatedViaSelfService CreatedVia = "self_service"
	CreatedViaStaff       CreatedVia = "staff"
)

// Booking is the committed entity, stored as an "interview" record for
// both categories. It is never deleted, only transitioned.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID               uuid.UUID     `bun:"id,pk,type:uuid"`
	Category         Category      `bun:"category,notnull"`
	CandidateID      uuid.UUID     `bun:"candidate_id,notnull,type:uuid"`
	ScheduledStart   time.Time     `bun:"scheduled_start,notnull"`
	DurationMinutes  int           `bun:"duration_minutes,notnull"`
	Status           BookingStatus `bun:"status,notnull"`
	ConfirmationCode string        `bun:"confirmation_code,notnull"`
	CreatedVia       CreatedVia    `bun:"created_via,notnull"`
	MeetingLink      string        `bun:"meeting_link"`
	NotifiedAt       *time.Time    `bun:"notified_at"`
	ResolutionNotes  string        `bun:"resolution_notes"`
	CreatedAt        time.Time     `bun:"created_at,notnull"`
	UpdatedAt        time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

func (b Booking) ScheduledEnd() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps reports whether [start, end) intersects this booking padded
// by buffer on both sides. The buffer is applied to the existing
// booking, so adjacent bookings stay at least one buffer apart.
func (b Booking) Overlaps(start, end time.Time, buffer time.Duration) bool {
	bufferedStart := b.ScheduledStart.Add(-buffer)
	bufferedEnd := b.ScheduledEnd().Add(buffer)
	return start.Before(bufferedEnd) && end.After(bufferedStart)
}

// SlotLock is the exact-time collision detector, keyed by
// (category, date, time) and created in the same transaction as the
// booking it protects. It is advisory: only authoritative while the
// referenced booking is still active.
type SlotLock struct {
	bun.BaseModel `bun:"table:slot_locks"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Category  Category  `bun:"category,notnull"`
	SlotDate  time.Time `bun:"slot_date,notnull"`
	SlotTime  string    `bun:"slot_time,notnull"`
	BookingID uuid.UUID `bun:"booking_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (l *SlotLock) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if l.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		l.ID = id
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BookingToken is a one-time capability that lets a candidate query and
// commit a booking without a full identity system.
type BookingToken struct {
	bun.BaseModel `bun:"table:booking_tokens"`

	Token           string    `bun:"token,pk"`
	Category        Category  `bun:"category,notnull"`
	CandidateID     uuid.UUID `bun:"candidate_id,notnull,type:uuid"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	MaxUses         int       `bun:"max_uses,notnull"`
	Uses            int       `bun:"uses,notnull"`
	ExpiresAt       time.Time `bun:"expires_at,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

func (t BookingToken) Usable(now time.Time) bool {
	return t.Uses < t.MaxUses && now.Before(t.ExpiresAt)
}

const confirmationCodeLen = 8

// confirmationAlphabet avoids 0/O and 1/I so codes survive being read
// out loud.
const confirmationAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewConfirmationCode returns a human-shareable opaque code.
func NewConfirmationCode() (string, error) {
	b := make([]byte, confirmationCodeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = confirmationAlphabet[int(b[i])%len(confirmationAlphabet)]
	}
	return string(b), nil
}
