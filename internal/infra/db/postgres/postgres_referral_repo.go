package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

func (r *referralRepo) Create(ctx context.Context, qx repository.Tx, ref *model.Referral) error {
	const q = `
INSERT INTO referrals (id, referrer_id, referred_id, bonus_days, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := execSQL(ctx, r.pool, qx, q, ref.ID, ref.ReferrerID, ref.ReferredID, ref.BonusDays, ref.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrReferralAlreadyExist
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *referralRepo) FindByReferredID(ctx context.Context, qx repository.Tx, referredID int64) (*model.Referral, error) {
	const q = `SELECT id, referrer_id, referred_id, bonus_days, created_at FROM referrals WHERE referred_id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, referredID)
	if err != nil {
		return nil, err
	}
	var ref model.Referral
	if err := row.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.BonusDays, &ref.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ref, nil
}

func (r *referralRepo) ListByReferrerID(ctx context.Context, qx repository.Tx, referrerID int64) ([]*model.Referral, error) {
	const q = `SELECT id, referrer_id, referred_id, bonus_days, created_at FROM referrals WHERE referrer_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q, referrerID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Referral
	for rows.Next() {
		var ref model.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.BonusDays, &ref.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
