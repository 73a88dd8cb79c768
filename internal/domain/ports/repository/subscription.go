package repository

import (
	"context"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// SubscriptionRepository is the port for the single Subscription row a user
// may own. Save upserts by UserID; Update applies a partial, in-place
// mutation so callers never need a full read-modify-write of fields they
// are not changing.
type SubscriptionRepository interface {
	Save(ctx context.Context, qx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Subscription, error)
	FindByUserID(ctx context.Context, qx Tx, userID int64) (*model.Subscription, error)
	Update(ctx context.Context, qx Tx, id string, upd model.SubscriptionUpdate) error
}
