package repository

import (
	"context"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// TariffRepository persists Tariff rows.
type TariffRepository interface {
	Save(ctx context.Context, qx Tx, t *model.Tariff) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Tariff, error)
	FindByName(ctx context.Context, qx Tx, name string) (*model.Tariff, error)
	ListActive(ctx context.Context, qx Tx) ([]*model.Tariff, error)
}
