package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"hirebook/backend/internal/domain"
)

// availabilityTemplateRow is the persisted form of a template; the
// weekly schedule lives in a jsonb column so staff tooling can edit it
// as one document.
type availabilityTemplateRow struct {
	bun.BaseModel `bun:"table:availability_templates"`

	Category            domain.Category       `bun:"category,pk"`
	Weekly              domain.WeeklySchedule `bun:"weekly,type:jsonb"`
	SlotDurationMinutes int                   `bun:"slot_duration_minutes,notnull"`
	BufferMinutes       int                   `bun:"buffer_minutes,notnull"`
	AdvanceBookingDays  int                   `bun:"advance_booking_days,notnull"`
	MinNoticeHours      int                   `bun:"min_notice_hours,notnull"`
	BlockedDates        []time.Time           `bun:"blocked_dates,array"`
	UpdatedAt           time.Time             `bun:"updated_at,notnull"`
}

// bookingBlocksRow is a single-row table holding the global exclusions.
type bookingBlocksRow struct {
	bun.BaseModel `bun:"table:booking_blocks"`

	ID           int64       `bun:"id,pk"`
	BankHolidays []time.Time `bun:"bank_holidays,array"`
	LunchEnabled bool        `bun:"lunch_enabled,notnull"`
	LunchStart   string      `bun:"lunch_start,notnull"`
	LunchEnd     string      `bun:"lunch_end,notnull"`
	UpdatedAt    time.Time   `bun:"updated_at,notnull"`
}

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

func (r *AvailabilityRepo) Template(ctx context.Context, category domain.Category) (domain.AvailabilityTemplate, error) {
	var row availabilityTemplateRow
	err := r.db.NewSelect().
		Model(&row).
		Where("category = ?", category).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.AvailabilityTemplate{}, mapNoRows(err)
	}

	return domain.AvailabilityTemplate{
		Category:            row.Category,
		Weekly:              row.Weekly,
		SlotDurationMinutes: row.SlotDurationMinutes,
		BufferMinutes:       row.BufferMinutes,
		AdvanceBookingDays:  row.AdvanceBookingDays,
		MinNoticeHours:      row.MinNoticeHours,
		BlockedDates:        row.BlockedDates,
	}, nil
}

func (r *AvailabilityRepo) Blocks(ctx context.Context) (domain.GlobalBlocks, error) {
	var row bookingBlocksRow
	err := r.db.NewSelect().
		Model(&row).
		OrderExpr("id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.GlobalBlocks{}, mapNoRows(err)
	}

	blocks := domain.GlobalBlocks{BankHolidays: row.BankHolidays}
	if row.LunchEnabled {
		start, err := domain.ParseTimeOfDay(row.LunchStart)
		if err != nil {
			return domain.GlobalBlocks{}, err
		}
		end, err := domain.ParseTimeOfDay(row.LunchEnd)
		if err != nil {
			return domain.GlobalBlocks{}, err
		}
		blocks.Lunch = domain.LunchBlock{Enabled: true, Start: start, End: end}
	}
	return blocks, nil
}
