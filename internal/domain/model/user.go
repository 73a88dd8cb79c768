package model

import (
	"time"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
)

// User is a registered chat-platform account. ID is the external stable
// Telegram id; ReferralCode is minted once and never changes.
type User struct {
	ID           int64
	Username     string
	ReferralCode string
	TrialUsed    bool
	CreatedAt    time.Time
}

// NewUser constructs and validates a User. referralCode must already be
// unique-checked by the caller (the Store enforces it at the schema level).
func NewUser(id int64, username, referralCode string) (*User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if len(referralCode) < 6 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Username:     username,
		ReferralCode: referralCode,
		TrialUsed:    false,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
