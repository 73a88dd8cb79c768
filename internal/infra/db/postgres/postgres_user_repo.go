package postgres

import (
	"errors"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, username, referral_code, trial_used, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  username = EXCLUDED.username,
  trial_used = EXCLUDED.trial_used;
`
	_, err := execSQL(ctx, r.pool, qx, q, u.ID, u.Username, u.ReferralCode, u.TrialUsed, u.CreatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, qx repository.Tx, id int64) (*model.User, error) {
	const q = `SELECT id, username, referral_code, trial_used, created_at FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.ReferralCode, &u.TrialUsed, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}

func (r *userRepo) FindByReferralCode(ctx context.Context, qx repository.Tx, code string) (*model.User, error) {
	const q = `SELECT id, username, referral_code, trial_used, created_at FROM users WHERE referral_code=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, code)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.ReferralCode, &u.TrialUsed, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}
