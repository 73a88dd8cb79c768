package model

import "time"

// DefaultReferralBonusDays is the BonusDays recorded on a new Referral. It
// is added to the trial duration when a fresh Subscription is granted for
// the referral (always for the referred user, and for a referrer who has
// none). A referrer's existing Subscription is extended by
// service.ReferrerBonusDays instead.
const DefaultReferralBonusDays = 7

// Referral is a one-time link between a referrer and a referred user.
// ReferredID is unique: a user can be referred at most once.
type Referral struct {
	ID         string
	ReferrerID int64
	ReferredID int64
	BonusDays  int
	CreatedAt  time.Time
}
