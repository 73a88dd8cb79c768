package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

const maxReferralCodeAttempts = 5

// UserService owns account bootstrapping and referral-code redemption.
type UserService struct {
	users      repository.UserRepository
	subs       repository.SubscriptionRepository
	referrals  repository.ReferralRepository
	subService *SubscriptionService
	tx         repository.TransactionManager
	log        *zerolog.Logger
}

func NewUserService(
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	referrals repository.ReferralRepository,
	subService *SubscriptionService,
	tx repository.TransactionManager,
	log *zerolog.Logger,
) *UserService {
	return &UserService{users: users, subs: subs, referrals: referrals, subService: subService, tx: tx, log: log}
}

// Start registers a first-seen user (minting a unique referral code) or
// fetches an existing one, then redeems refCode if given. bonusApplied
// tells the caller whether the referral bonus was actually granted.
func (s *UserService) Start(ctx context.Context, userID int64, username, refCode string) (*model.User, bool, error) {
	user, err := s.users.FindByID(ctx, nil, userID)
	switch {
	case err == nil:
		// already registered
	case errors.Is(err, domain.ErrUserNotFound):
		code, cerr := s.mintReferralCode(ctx)
		if cerr != nil {
			return nil, false, cerr
		}
		nu, nerr := model.NewUser(userID, username, code)
		if nerr != nil {
			return nil, false, apperr.Wrap(apperr.ServiceUser, "Start.newUser", nerr)
		}
		if serr := s.users.Save(ctx, nil, nu); serr != nil {
			return nil, false, apperr.WrapIfUnexpected(apperr.ServiceUser, "Start.save", serr)
		}
		user = nu
	default:
		return nil, false, apperr.WrapIfUnexpected(apperr.ServiceUser, "Start.load", err)
	}

	bonusApplied := false
	if refCode != "" {
		if aerr := s.applyReferral(ctx, userID, refCode); aerr != nil {
			return nil, false, aerr
		}
		bonusApplied = true
	}
	return user, bonusApplied, nil
}

// mintReferralCode retries collisions on the unique referral_code column a
// bounded number of times before giving up with a Business error.
func (s *UserService) mintReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", apperr.Wrap(apperr.ServiceUser, "mintReferralCode", err)
		}
		if _, ferr := s.users.FindByReferralCode(ctx, nil, code); errors.Is(ferr, domain.ErrUserNotFound) {
			return code, nil
		}
	}
	return "", domain.ErrReferralCodeGeneration
}

// applyReferral implements _apply_referral: it validates the redeemer has
// no Subscription yet, resolves the referrer by code, rejects self-
// referral and double-redemption, then records the Referral and hands off
// to the Subscription Service for both sides' bonus.
func (s *UserService) applyReferral(ctx context.Context, userID int64, refCode string) error {
	var referral *model.Referral

	err := s.tx.WithTx(ctx, func(ctx context.Context, qx repository.Tx) error {
		if _, err := s.subs.FindByUserID(ctx, qx, userID); err == nil {
			return domain.ErrSubscriptionAlreadyExist
		} else if !errors.Is(err, domain.ErrSubscriptionNotFound) {
			return err
		}

		referrer, err := s.users.FindByReferralCode(ctx, qx, refCode)
		if err != nil || referrer.ID == userID {
			if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
				return err
			}
			return domain.ErrSelfReferral
		}

		if _, err := s.referrals.FindByReferredID(ctx, qx, userID); err == nil {
			return domain.ErrReferralAlreadyExist
		}

		r := &model.Referral{
			ID: uuid.NewString(), ReferrerID: referrer.ID, ReferredID: userID,
			BonusDays: model.DefaultReferralBonusDays, CreatedAt: time.Now().UTC(),
		}
		if err := s.referrals.Create(ctx, qx, r); err != nil {
			return err
		}
		referral = r
		return nil
	})
	if err != nil {
		return apperr.WrapIfUnexpected(apperr.ServiceUser, "applyReferral", err)
	}

	// Granting the bonus touches the VPN Provisioner, so it runs outside the
	// unit-of-work above rather than holding it open across an external call.
	return s.subService.ApplyReferralBonus(ctx, referral)
}
