package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.TariffRepository = (*tariffRepo)(nil)

type tariffRepo struct {
	pool *pgxpool.Pool
}

func NewTariffRepo(pool *pgxpool.Pool) *tariffRepo {
	return &tariffRepo{pool: pool}
}

func (r *tariffRepo) Save(ctx context.Context, qx repository.Tx, t *model.Tariff) error {
	const q = `
INSERT INTO tariffs (id, name, duration_days, price, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  duration_days = EXCLUDED.duration_days,
  price = EXCLUDED.price,
  is_active = EXCLUDED.is_active;
`
	_, err := execSQL(ctx, r.pool, qx, q, t.ID, t.Name, t.DurationDays, t.Price, t.IsActive, t.CreatedAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *tariffRepo) scanOne(row pgx.Row) (*model.Tariff, error) {
	var t model.Tariff
	if err := row.Scan(&t.ID, &t.Name, &t.DurationDays, &t.Price, &t.IsActive, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTariffNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &t, nil
}

func (r *tariffRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Tariff, error) {
	const q = `SELECT id, name, duration_days, price, is_active, created_at FROM tariffs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return r.scanOne(row)
}

func (r *tariffRepo) FindByName(ctx context.Context, qx repository.Tx, name string) (*model.Tariff, error) {
	const q = `SELECT id, name, duration_days, price, is_active, created_at FROM tariffs WHERE name=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, name)
	if err != nil {
		return nil, err
	}
	return r.scanOne(row)
}

func (r *tariffRepo) ListActive(ctx context.Context, qx repository.Tx) ([]*model.Tariff, error) {
	const q = `SELECT id, name, duration_days, price, is_active, created_at FROM tariffs WHERE is_active ORDER BY duration_days ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Tariff
	for rows.Next() {
		var t model.Tariff
		if err := rows.Scan(&t.ID, &t.Name, &t.DurationDays, &t.Price, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
