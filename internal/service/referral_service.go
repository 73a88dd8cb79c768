package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

// Info is the presentation-ready shape of a user's referral standing.
type Info struct {
	RefLink           string
	Total             int
	ReferredUsernames []string
}

// ReferralService answers "how is my referral program doing" queries; the
// actual bonus granting lives in SubscriptionService.ApplyReferralBonus,
// invoked from UserService at redemption time.
type ReferralService struct {
	users     repository.UserRepository
	referrals repository.ReferralRepository
	log       *zerolog.Logger
}

func NewReferralService(users repository.UserRepository, referrals repository.ReferralRepository, log *zerolog.Logger) *ReferralService {
	return &ReferralService{users: users, referrals: referrals, log: log}
}

// Info builds the referral link and roster for userID. Referred users who
// can no longer be resolved (should not normally happen, given the
// foreign-key relationship) are represented by their numeric id instead.
func (s *ReferralService) Info(ctx context.Context, userID int64, botHandle string) (*Info, error) {
	user, err := s.users.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	list, err := s.referrals.ListByReferrerID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.WrapIfUnexpected(apperr.ServiceReferral, "Info.list", err)
	}

	usernames := make([]string, 0, len(list))
	for _, r := range list {
		referred, ferr := s.users.FindByID(ctx, nil, r.ReferredID)
		if ferr != nil {
			usernames = append(usernames, fmt.Sprintf("%d", r.ReferredID))
			continue
		}
		usernames = append(usernames, referred.Username)
	}

	return &Info{
		RefLink:           fmt.Sprintf("https://t.me/%s?start=%s", botHandle, user.ReferralCode),
		Total:             len(list),
		ReferredUsernames: usernames,
	}, nil
}
