package repository

import (
	"context"
	"time"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// PaymentRepository persists Payment rows. MarkSuccess is the narrow,
// idempotent write PaymentService.process_success issues in its isolated
// unit-of-work: it must be safe to call twice for the same id (the second
// call finds the row no longer PENDING, and an external_charge_id already
// used by another row hits its unique constraint; both are surfaced as
// domain.ErrPaymentAlreadyProcessed).
type PaymentRepository interface {
	Save(ctx context.Context, qx Tx, p *model.Payment) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Payment, error)
	MarkSuccess(ctx context.Context, qx Tx, id, externalChargeID, providerChargeID string, completedAt time.Time) error
}
