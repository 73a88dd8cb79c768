package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, user_id, tariff_id, amount, status, invoice_payload, external_charge_id, provider_charge_id, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);
`
	_, err := execSQL(ctx, r.pool, qx, q,
		p.ID, p.UserID, p.TariffID, p.Amount, string(p.Status), p.InvoicePayload, p.ExternalChargeID, p.ProviderChargeID, p.CreatedAt, p.CompletedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	const q = `
SELECT id, user_id, tariff_id, amount, status, invoice_payload, external_charge_id, provider_charge_id, created_at, completed_at
FROM payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.TariffID, &p.Amount, &status, &p.InvoicePayload, &p.ExternalChargeID, &p.ProviderChargeID, &p.CreatedAt, &p.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

// MarkSuccess is the only write process_success issues. It is guarded twice:
// the WHERE clause only matches a still-PENDING row (so a concurrent retry
// sees zero rows affected), and external_charge_id carries a unique
// constraint that turns a genuine double-delivery into 23505.
func (r *paymentRepo) MarkSuccess(ctx context.Context, qx repository.Tx, id, externalChargeID, providerChargeID string, completedAt time.Time) error {
	const q = `
UPDATE payments SET status='SUCCESS', external_charge_id=$2, provider_charge_id=$3, completed_at=$4
WHERE id=$1 AND status='PENDING';
`
	tag, err := execSQL(ctx, r.pool, qx, q, id, externalChargeID, providerChargeID, completedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPaymentAlreadyProcessed
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentAlreadyProcessed
	}
	return nil
}
