package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, qx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, tariff_id, vpn_key, vpn_key_id, end_date, is_active, cnt_payments, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (user_id) DO UPDATE SET
  tariff_id = EXCLUDED.tariff_id,
  vpn_key = EXCLUDED.vpn_key,
  vpn_key_id = EXCLUDED.vpn_key_id,
  end_date = EXCLUDED.end_date,
  is_active = EXCLUDED.is_active,
  cnt_payments = EXCLUDED.cnt_payments,
  updated_at = EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, qx, q,
		s.ID, s.UserID, s.TariffID, s.VPNKey, s.VPNKeyID, s.EndDate, s.IsActive, s.CntPayments, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

const subscriptionColumns = `id, user_id, tariff_id, vpn_key, vpn_key_id, end_date, is_active, cnt_payments, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.TariffID, &s.VPNKey, &s.VPNKeyID, &s.EndDate, &s.IsActive, &s.CntPayments, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindByUserID(ctx context.Context, qx repository.Tx, userID int64) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

// Update applies a partial, in-place mutation: nil fields in upd are left
// untouched. updated_at is always bumped to now.
func (r *subscriptionRepo) Update(ctx context.Context, qx repository.Tx, id string, upd model.SubscriptionUpdate) error {
	sets := []string{"updated_at = now()"}
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.VPNKey != nil {
		add("vpn_key", *upd.VPNKey)
	}
	if upd.VPNKeyID != nil {
		add("vpn_key_id", *upd.VPNKeyID)
	}
	if upd.EndDate != nil {
		add("end_date", *upd.EndDate)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.CntPayments != nil {
		add("cnt_payments", *upd.CntPayments)
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE subscriptions SET %s WHERE id = $%d;", strings.Join(sets, ", "), len(args))

	tag, err := execSQL(ctx, r.pool, qx, q, args...)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}
