package repository

import (
	"context"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// UserRepository persists User rows. Save must upsert: the User Service
// calls it both to register a new user and to flip trial_used in place.
type UserRepository interface {
	Save(ctx context.Context, qx Tx, u *model.User) error
	FindByID(ctx context.Context, qx Tx, id int64) (*model.User, error)
	FindByReferralCode(ctx context.Context, qx Tx, code string) (*model.User, error)
}
