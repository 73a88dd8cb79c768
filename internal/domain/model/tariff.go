package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
)

// TrialTariffName is the reserved Tariff.Name that marks the trial plan;
// at most one Tariff may carry it.
const TrialTariffName = "trial"

// Tariff is a named, priced plan with a fixed duration in days.
type Tariff struct {
	ID           string
	Name         string
	DurationDays int
	Price        float64
	IsActive     bool
	CreatedAt    time.Time
}

func (t *Tariff) IsTrial() bool { return t != nil && t.Name == TrialTariffName }

// NewTariff validates and constructs a Tariff.
func NewTariff(name string, durationDays int, price float64) (*Tariff, error) {
	if name == "" || durationDays < 1 || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Tariff{
		ID:           uuid.NewString(),
		Name:         name,
		DurationDays: durationDays,
		Price:        price,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
