package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"hirebook/backend/internal/domain"
)

type TokenRepo struct {
	db *bun.DB
}

func NewTokenRepo(db *bun.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Resolve(ctx context.Context, token string) (domain.BookingToken, error) {
	var row domain.BookingToken
	err := r.db.NewSelect().
		Model(&row).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.BookingToken{}, mapNoRows(err)
	}
	return row, nil
}
