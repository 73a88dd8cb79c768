package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

// Invoice is the caller-facing shape of a freshly issued Payment row.
type Invoice struct {
	PaymentID    string
	Payload      string
	Amount       float64
	DurationDays int
	Label        string
}

// ProcessResult is the caller-facing outcome of a successful callback.
type ProcessResult struct {
	Action  string // "created" or "extended"
	EndDate time.Time
	VPNKey  string
}

// PaymentService turns a tariff purchase into an issued invoice and, on the
// provider's success callback, into Subscription state. CreateInvoice and
// ProcessSuccess each open their own unit-of-work deliberately: the Payment
// row they write must survive even if the caller's surrounding handler
// later rolls back or fails.
type PaymentService struct {
	payments repository.PaymentRepository
	tariffs  repository.TariffRepository
	subs     *SubscriptionService
	tx       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentService(
	payments repository.PaymentRepository,
	tariffs repository.TariffRepository,
	subs *SubscriptionService,
	tx repository.TransactionManager,
	log *zerolog.Logger,
) *PaymentService {
	return &PaymentService{payments: payments, tariffs: tariffs, subs: subs, tx: tx, log: log}
}

// CreateInvoice issues a PENDING Payment row in its own isolated
// unit-of-work that commits immediately, independent of whatever handler
// transaction called it.
func (p *PaymentService) CreateInvoice(ctx context.Context, userID int64, tariffID string) (*Invoice, error) {
	tariff, err := p.tariffs.FindByID(ctx, nil, tariffID)
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ID:             uuid.NewString(),
		UserID:         userID,
		TariffID:       tariffID,
		Amount:         tariff.Price,
		Status:         model.PaymentStatusPending,
		InvoicePayload: fmt.Sprintf("%d_%s_%d", userID, tariffID, time.Now().UTC().Unix()),
		CreatedAt:      time.Now().UTC(),
	}

	err = p.tx.WithTx(ctx, func(ctx context.Context, qx repository.Tx) error {
		return p.payments.Save(ctx, qx, payment)
	})
	if err != nil {
		return nil, apperr.WrapIfUnexpected(apperr.ServicePayment, "CreateInvoice", err)
	}

	return &Invoice{
		PaymentID:    payment.ID,
		Payload:      payment.InvoicePayload,
		Amount:       tariff.Price,
		DurationDays: tariff.DurationDays,
		Label:        fmt.Sprintf("%s — %d days", tariff.Name, tariff.DurationDays),
	}, nil
}

// ProcessSuccess marks the Payment SUCCESS in its own isolated
// unit-of-work, then extends or creates the buyer's Subscription in a
// second, separate unit-of-work. Per the testable property in spec
// section 8, the Payment row's SUCCESS status survives even if the
// Subscription step that follows later fails.
func (p *PaymentService) ProcessSuccess(ctx context.Context, paymentID, externalChargeID, providerChargeID string) (*ProcessResult, error) {
	var payment *model.Payment

	err := p.tx.WithTx(ctx, func(ctx context.Context, qx repository.Tx) error {
		pay, ferr := p.payments.FindByID(ctx, qx, paymentID)
		if ferr != nil {
			return ferr
		}
		payment = pay
		return p.payments.MarkSuccess(ctx, qx, paymentID, externalChargeID, providerChargeID, time.Now().UTC())
	})
	if err != nil {
		return nil, apperr.WrapIfUnexpected(apperr.ServicePayment, "ProcessSuccess.markSuccess", err)
	}

	existedBefore, err := p.subs.Exists(ctx, payment.UserID)
	if err != nil {
		return nil, err
	}

	sub, vpnKey, err := p.subs.CreateOrExtend(ctx, payment.UserID, payment.TariffID)
	if err != nil {
		return nil, err
	}

	action := "created"
	if existedBefore {
		action = "extended"
	}
	return &ProcessResult{Action: action, EndDate: sub.EndDate, VPNKey: vpnKey}, nil
}
