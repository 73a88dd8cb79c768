package repository

import (
	"context"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// ReferralRepository persists the one-time referrer/referred link. Create
// must fail with domain.ErrReferralAlreadyExist on a duplicate referred_id — the
// schema's unique constraint is the authority, this is the typed surface
// over it.
type ReferralRepository interface {
	Create(ctx context.Context, qx Tx, r *model.Referral) error
	FindByReferredID(ctx context.Context, qx Tx, referredID int64) (*model.Referral, error)
	ListByReferrerID(ctx context.Context, qx Tx, referrerID int64) ([]*model.Referral, error)
}
