package model

import "time"

// Subscription is the per-user record of VPN access. It is created once
// per user and mutated in place thereafter — never deleted, never
// duplicated (UserID is unique at the Store level).
//
// Invariant: IsActive ⇒ VPNKey != "" && VPNKeyID != "".
// Invariant: !IsActive ⇒ VPNKey == "" && VPNKeyID == "".
type Subscription struct {
	ID           string
	UserID       int64
	TariffID     string
	VPNKey       string
	VPNKeyID     string
	EndDate      time.Time
	IsActive     bool
	CntPayments  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubscriptionUpdate is a partial update applied in place by the Store;
// nil fields are left untouched (see repository.SubscriptionRepository.Update).
type SubscriptionUpdate struct {
	VPNKey      *string
	VPNKeyID    *string
	EndDate     *time.Time
	IsActive    *bool
	CntPayments *int
}
