package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"hirebook/backend/internal/domain"
	"hirebook/backend/internal/store"
)

type CandidateRepo struct {
	db *bun.DB
}

func NewCandidateRepo(db *bun.DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

func (r *CandidateRepo) Get(ctx context.Context, id uuid.UUID) (domain.Candidate, error) {
	var row domain.Candidate
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Candidate{}, mapNoRows(err)
	}
	return row, nil
}

func (r *CandidateRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.CandidateStatus) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Candidate)(nil)).
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

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == to {
		return nil
	}
	return store.ErrStaleStatus
}
