package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type slotTx struct {
	tx bun.Tx
}

// slotKey is the advisory-lock key serializing all writes for one
// category on one calendar date.
func slotKey(category domain.Category, day time.Time) string {
	return fmt.Sprintf("%s:%s", category, domain.DateOf(day).Format("2006-01-02"))
}

func (r *BookingRepo) InSlotTransaction(ctx context.Context, category domain.Category, day time.Time, fn func(ctx context.Context, tx store.SlotTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", slotKey(category, day)).Exec(ctx); err != nil {
			return err
		}
		return fn(ctx, slotTx{tx: tx})
	})
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, r.db, id)
}

func (r *BookingRepo) ListActiveBookings(ctx context.Context, category domain.Category, dayStart, dayEnd time.Time) ([]domain.Booking, error) {
	return listActiveBookings(ctx, r.db, category, dayStart, dayEnd)
}

func (r *BookingRepo) CountActiveByDay(ctx context.Context, category domain.Category, from, to time.Time) (map[string]int, error) {
	var rows []struct {
		Day time.Time `bun:"day"`
		N   int       `bun:"n"`
	}
	err := r.db.NewSelect().
		Model((*domain.Booking)(nil)).
		ColumnExpr("date_trunc('day', scheduled_start AT TIME ZONE 'UTC') AS day").
		ColumnExpr("count(*) AS n").
		Where("category = ?", category).
		Where("status IN (?)", bun.In(domain.ActiveBookingStatuses)).
		Where("scheduled_start >= ?", from).
		Where("scheduled_start < ?", to).
		GroupExpr("date_trunc('day', scheduled_start AT TIME ZONE 'UTC')").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Day.UTC().Format("2006-01-02")] = row.N
	}
	return out, nil
}

func (r *BookingRepo) ListDue(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("status IN (?)", bun.In(domain.ActiveBookingStatuses)).
		Where("scheduled_start < ?", cutoff).
		OrderExpr("scheduled_start ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListForCandidate(ctx context.Context, candidateID uuid.UUID, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().
		Model(&rows).
		Where("candidate_id = ?", candidateID)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if err := q.OrderExpr("scheduled_start ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	current, err := getBooking(ctx, r.db, id)
	if err != nil {
		return err
	}
	if current.Status == to {
		// already there; sweep and cascade may both race to the
		// same transition
		return nil
	}
	return store.ErrStaleStatus
}

func (r *BookingRepo) SetResolution(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, notes string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", to).
		Set("resolution_notes = ?", notes).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := getBooking(ctx, r.db, id); err != nil {
			return err
		}
		return store.ErrStaleStatus
	}
	return nil
}

func (r *BookingRepo) RecordSideEffects(ctx context.Context, id uuid.UUID, meetingLink string, notifiedAt *time.Time) error {
	q := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)
	if meetingLink != "" {
		q = q.Set("meeting_link = ?", meetingLink)
	}
	if notifiedAt != nil {
		q = q.Set("notified_at = ?", notifiedAt.UTC())
	}
	_, err := q.Exec(ctx)
	return err
}

func (t slotTx) GetTokenForUpdate(ctx context.Context, token string) (domain.BookingToken, error) {
	var row domain.BookingToken
	err := t.tx.NewSelect().
		Model(&row).
		Where("token = ?", token).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.BookingToken{}, mapNoRows(err)
	}
	return row, nil
}

func (t slotTx) IncrementTokenUses(ctx context.Context, token string) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.BookingToken)(nil)).
		Set("uses = uses + 1").
		Where("token = ?", token).
		Where("uses < max_uses").
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrTokenExhausted
	}
	return nil
}

func (t slotTx) GetSlotLock(ctx context.Context, category domain.Category, day time.Time, slotTime string) (domain.SlotLock, error) {
	var row domain.SlotLock
	err := t.tx.NewSelect().
		Model(&row).
		Where("category = ?", category).
		Where("slot_date = ?", domain.DateOf(day)).
		Where("slot_time = ?", slotTime).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.SlotLock{}, mapNoRows(err)
	}
	return row, nil
}

func (t slotTx) CreateSlotLock(ctx context.Context, lock domain.SlotLock) (domain.SlotLock, error) {
	m := domain.SlotLock{
		ID:        lock.ID,
		Category:  lock.Category,
		SlotDate:  domain.DateOf(lock.SlotDate),
		SlotTime:  lock.SlotTime,
		BookingID: lock.BookingID,
		CreatedAt: lock.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.SlotLock{}, store.ErrConflict
		}
		return domain.SlotLock{}, err
	}
	return m, nil
}

func (t slotTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, t.tx, id)
}

func (t slotTx) ListActiveBookings(ctx context.Context, category domain.Category, dayStart, dayEnd time.Time) ([]domain.Booking, error) {
	return listActiveBookings(ctx, t.tx, category, dayStart, dayEnd)
}

func (t slotTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	return m, nil
}

func (t slotTx) RescheduleBooking(ctx context.Context, id uuid.UUID, start time.Time, notes string) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("scheduled_start = ?", start.UTC()).
		Set("status = ?", domain.BookingScheduled).
		Set("resolution_notes = ?", notes).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", domain.BookingLapsed).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrStaleStatus
	}
	return nil
}

func getBooking(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Booking, error) {
	var row domain.Booking
	err := db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, mapNoRows(err)
	}
	return row, nil
}

func listActiveBookings(ctx context.Context, db bun.IDB, category domain.Category, dayStart, dayEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := db.NewSelect().
		Model(&rows).
		Where("category = ?", category).
		Where("status IN (?)", bun.In(domain.ActiveBookingStatuses)).
		Where("scheduled_start >= ?", dayStart).
		Where("scheduled_start < ?", dayEnd).
		OrderExpr("scheduled_start ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
