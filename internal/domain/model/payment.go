package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusCanceled PaymentStatus = "CANCELED"
)

// Payment records an invoice issued for a tariff and its eventual outcome.
// Status=SUCCESS implies both charge ids and CompletedAt are set.
type Payment struct {
	ID                string
	UserID            int64
	TariffID          string
	Amount            float64
	Status            PaymentStatus
	InvoicePayload    string
	ExternalChargeID  *string
	ProviderChargeID  *string
	CreatedAt         time.Time
	CompletedAt       *time.Time
}
