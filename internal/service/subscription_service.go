package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/adapter"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

// jobArgs is the JSON shape replan writes into model.Job.Args for both the
// DEACTIVATE and NOTIFY handlers.
type jobArgs struct {
	SubID string `json:"sub_id"`
}

// ParseJobArgs decodes a scheduler job's Args payload, for wiring
// scheduler.Handler funcs around Deactivate/Notify in cmd/app.
func ParseJobArgs(args string) (string, error) {
	var a jobArgs
	if err := json.Unmarshal([]byte(args), &a); err != nil || a.SubID == "" {
		return "", fmt.Errorf("invalid job args %q", args)
	}
	return a.SubID, nil
}

// NotifyLeadTime is how far before end_date the NOTIFY job fires.
const NotifyLeadTime = 3 * 24 * time.Hour

// ReferrerBonusDays is the flat extension the referrer earns, on top of
// the later of now and their existing end_date.
const ReferrerBonusDays = 7

// ReminderText is the fixed reminder the notify job sends.
const ReminderText = "Your VPN subscription expires in 3 days. Renew to keep your access key active."

// SubscriptionService owns the Subscription state machine (NONE -> ACTIVE
// <-> INACTIVE) and keeps the scheduler_jobs projection — one DEACTIVATE
// and one NOTIFY job per active Subscription — in sync with every
// end_date change.
type SubscriptionService struct {
	subs      repository.SubscriptionRepository
	tariffs   repository.TariffRepository
	users     repository.UserRepository
	vpn       adapter.VPNProvisioner
	sink      adapter.NotificationSink
	scheduler adapter.Scheduler
	tx        repository.UserScopedTxManager
	log       *zerolog.Logger
}

func NewSubscriptionService(
	subs repository.SubscriptionRepository,
	tariffs repository.TariffRepository,
	users repository.UserRepository,
	vpn adapter.VPNProvisioner,
	sink adapter.NotificationSink,
	scheduler adapter.Scheduler,
	tx repository.UserScopedTxManager,
	log *zerolog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subs: subs, tariffs: tariffs, users: users,
		vpn: vpn, sink: sink, scheduler: scheduler, tx: tx, log: log,
	}
}

// Exists reports whether userID already owns a Subscription row, used by
// PaymentService to decide between "created" and "extended" outcomes.
func (s *SubscriptionService) Exists(ctx context.Context, userID int64) (bool, error) {
	_, err := s.subs.FindByUserID(ctx, nil, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return false, nil
	}
	return false, apperr.WrapIfUnexpected(apperr.ServiceSubscription, "Exists", err)
}

func durationOf(t *model.Tariff) time.Duration {
	return time.Duration(t.DurationDays) * 24 * time.Hour
}

func keyName(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// CreateOrExtend is the single entry point for turning a tariff purchase
// (paid, trial, or referral bonus) into Subscription state. It mints or
// reuses the remote VPN key, applies the NONE/ACTIVE/INACTIVE transition
// table from spec section 4.6, and re-plans both scheduler jobs.
func (s *SubscriptionService) CreateOrExtend(ctx context.Context, userID int64, tariffID string) (*model.Subscription, string, error) {
	tariff, err := s.tariffs.FindByID(ctx, nil, tariffID)
	if err != nil {
		return nil, "", err
	}

	var sub *model.Subscription
	var vpnKey string

	err = s.tx.WithUserTx(ctx, userID, func(ctx context.Context, qx repository.Tx) error {
		now := time.Now().UTC()
		existing, ferr := s.subs.FindByUserID(ctx, qx, userID)

		switch {
		case ferr == nil:
			if existing.IsActive && existing.EndDate.After(now) {
				newEnd := existing.EndDate.Add(durationOf(tariff))
				cnt := existing.CntPayments + 1
				if uerr := s.subs.Update(ctx, qx, existing.ID, model.SubscriptionUpdate{EndDate: &newEnd, CntPayments: &cnt}); uerr != nil {
					return uerr
				}
				existing.EndDate, existing.CntPayments = newEnd, cnt
				vpnKey = existing.VPNKey
			} else {
				key, kerr := s.vpn.CreateKey(ctx, keyName(userID))
				if kerr != nil {
					return kerr
				}
				newEnd := now.Add(durationOf(tariff))
				active := true
				cnt := existing.CntPayments + 1
				upd := model.SubscriptionUpdate{
					VPNKey: &key.AccessURL, VPNKeyID: &key.ID,
					EndDate: &newEnd, IsActive: &active, CntPayments: &cnt,
				}
				if uerr := s.subs.Update(ctx, qx, existing.ID, upd); uerr != nil {
					return uerr
				}
				existing.VPNKey, existing.VPNKeyID = key.AccessURL, key.ID
				existing.EndDate, existing.IsActive, existing.CntPayments = newEnd, true, cnt
				vpnKey = key.AccessURL
			}
			sub = existing
		case errors.Is(ferr, domain.ErrSubscriptionNotFound):
			key, kerr := s.vpn.CreateKey(ctx, keyName(userID))
			if kerr != nil {
				return kerr
			}
			created := &model.Subscription{
				ID: uuid.NewString(), UserID: userID, TariffID: tariff.ID,
				VPNKey: key.AccessURL, VPNKeyID: key.ID,
				EndDate: now.Add(durationOf(tariff)), IsActive: true, CntPayments: 1,
				CreatedAt: now, UpdatedAt: now,
			}
			if serr := s.subs.Save(ctx, qx, created); serr != nil {
				return serr
			}
			sub, vpnKey = created, key.AccessURL
		default:
			return ferr
		}
		return nil
	})
	if err != nil {
		return nil, "", apperr.WrapIfUnexpected(apperr.ServiceSubscription, "CreateOrExtend", err)
	}

	if rerr := s.replan(ctx, sub); rerr != nil {
		s.log.Error().Err(rerr).Str("sub_id", sub.ID).Msg("subscription: failed to replan jobs after create_or_extend")
		return nil, "", apperr.Wrap(apperr.ServiceSubscription, "CreateOrExtend.replan", rerr)
	}
	return sub, vpnKey, nil
}

// replan replaces the DEACTIVATE/NOTIFY projection for sub, per the
// testable invariant that every active Subscription has exactly one
// pending job of each kind (the notify job only if its timestamp hasn't
// already passed).
func (s *SubscriptionService) replan(ctx context.Context, sub *model.Subscription) error {
	deactivateJob := &model.Job{
		ID: model.DeactivateJobID(sub.ID), RunAt: sub.EndDate, Handler: model.HandlerDeactivate,
		Args: fmt.Sprintf(`{"sub_id":%q}`, sub.ID), CreatedAt: time.Now().UTC(),
	}
	if err := s.scheduler.Replace(ctx, deactivateJob); err != nil {
		return err
	}

	notifyAt := sub.EndDate.Add(-NotifyLeadTime)
	if notifyAt.After(time.Now().UTC()) {
		notifyJob := &model.Job{
			ID: model.NotifyJobID(sub.ID), RunAt: notifyAt, Handler: model.HandlerNotify,
			Args: fmt.Sprintf(`{"sub_id":%q}`, sub.ID), CreatedAt: time.Now().UTC(),
		}
		if err := s.scheduler.Replace(ctx, notifyJob); err != nil {
			return err
		}
	} else if err := s.scheduler.Remove(ctx, model.NotifyJobID(sub.ID)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// Deactivate is the DEACTIVATE job's handler, keyed by sub_id. It is
// idempotent: firing it twice is a no-op the second time, and it deletes
// the remote key at most once.
func (s *SubscriptionService) Deactivate(ctx context.Context, subID string) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, qx repository.Tx) error {
		sub, ferr := s.subs.FindByID(ctx, qx, subID)
		if ferr != nil {
			if errors.Is(ferr, domain.ErrSubscriptionNotFound) {
				return nil
			}
			return ferr
		}
		if !sub.IsActive {
			return nil
		}
		if sub.VPNKeyID != "" {
			if derr := s.vpn.DeleteKey(ctx, sub.VPNKeyID); derr != nil {
				return derr
			}
		}
		empty := ""
		inactive := false
		return s.subs.Update(ctx, qx, sub.ID, model.SubscriptionUpdate{
			VPNKey: &empty, VPNKeyID: &empty, IsActive: &inactive,
		})
	})
	if err != nil {
		return apperr.WrapIfUnexpected(apperr.ServiceSubscription, "Deactivate", err)
	}
	return nil
}

// Notify is the NOTIFY job's handler. Send failures are logged and
// swallowed: a chat outage must not crash the scheduler or touch
// Subscription state.
func (s *SubscriptionService) Notify(ctx context.Context, subID string) error {
	sub, err := s.subs.FindByID(ctx, nil, subID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return nil
		}
		return apperr.WrapIfUnexpected(apperr.ServiceSubscription, "Notify", err)
	}
	if !sub.IsActive {
		return nil
	}
	if serr := s.sink.Send(ctx, sub.UserID, ReminderText); serr != nil {
		s.log.Warn().Err(serr).Int64("user_id", sub.UserID).Msg("subscription: notify send failed, swallowing")
	}
	return nil
}

// ActivateTrial grants the one-per-user free trial allocation.
func (s *SubscriptionService) ActivateTrial(ctx context.Context, userID int64) (*model.Subscription, string, error) {
	user, err := s.users.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, "", err
	}
	if user.TrialUsed {
		return nil, "", domain.ErrTrialAlreadyUsed
	}
	trial, err := s.tariffs.FindByName(ctx, nil, model.TrialTariffName)
	if err != nil {
		return nil, "", err
	}

	sub, vpnKey, err := s.CreateOrExtend(ctx, userID, trial.ID)
	if err != nil {
		return nil, "", err
	}

	user.TrialUsed = true
	if uerr := s.users.Save(ctx, nil, user); uerr != nil {
		return nil, "", apperr.WrapIfUnexpected(apperr.ServiceSubscription, "ActivateTrial.markUsed", uerr)
	}
	return sub, vpnKey, nil
}

// ApplyReferralBonus grants both sides of a just-created Referral: the
// referred user gets a fresh Subscription sized trial+bonus days, the
// referrer gets their existing Subscription extended by ReferrerBonusDays
// (or a fresh one of the same shape if they have none yet).
func (s *SubscriptionService) ApplyReferralBonus(ctx context.Context, referral *model.Referral) error {
	trial, err := s.tariffs.FindByName(ctx, nil, model.TrialTariffName)
	if err != nil {
		return err
	}

	if err := s.grantReferredBonus(ctx, referral, trial); err != nil {
		return err
	}
	return s.grantReferrerBonus(ctx, referral, trial)
}

func (s *SubscriptionService) grantReferredBonus(ctx context.Context, referral *model.Referral, trial *model.Tariff) error {
	duration := time.Duration(trial.DurationDays)*24*time.Hour + time.Duration(referral.BonusDays)*24*time.Hour

	var sub *model.Subscription
	err := s.tx.WithUserTx(ctx, referral.ReferredID, func(ctx context.Context, qx repository.Tx) error {
		now := time.Now().UTC()
		key, kerr := s.vpn.CreateKey(ctx, keyName(referral.ReferredID))
		if kerr != nil {
			return kerr
		}
		created := &model.Subscription{
			ID: uuid.NewString(), UserID: referral.ReferredID, TariffID: trial.ID,
			VPNKey: key.AccessURL, VPNKeyID: key.ID,
			EndDate: now.Add(duration), IsActive: true, CntPayments: 0,
			CreatedAt: now, UpdatedAt: now,
		}
		if serr := s.subs.Save(ctx, qx, created); serr != nil {
			return serr
		}
		sub = created

		referred, uerr := s.users.FindByID(ctx, qx, referral.ReferredID)
		if uerr != nil {
			return uerr
		}
		referred.TrialUsed = true
		return s.users.Save(ctx, qx, referred)
	})
	if err != nil {
		return apperr.WrapIfUnexpected(apperr.ServiceSubscription, "ApplyReferralBonus.referred", err)
	}
	if err := s.replan(ctx, sub); err != nil {
		return apperr.Wrap(apperr.ServiceSubscription, "ApplyReferralBonus.referred.replan", err)
	}
	return nil
}

func (s *SubscriptionService) grantReferrerBonus(ctx context.Context, referral *model.Referral, trial *model.Tariff) error {
	var sub *model.Subscription
	err := s.tx.WithUserTx(ctx, referral.ReferrerID, func(ctx context.Context, qx repository.Tx) error {
		now := time.Now().UTC()
		existing, ferr := s.subs.FindByUserID(ctx, qx, referral.ReferrerID)

		switch {
		case ferr == nil:
			base := existing.EndDate
			if now.After(base) {
				base = now
			}
			newEnd := base.AddDate(0, 0, ReferrerBonusDays)
			if existing.IsActive {
				if uerr := s.subs.Update(ctx, qx, existing.ID, model.SubscriptionUpdate{EndDate: &newEnd}); uerr != nil {
					return uerr
				}
				existing.EndDate = newEnd
			} else {
				key, kerr := s.vpn.CreateKey(ctx, keyName(referral.ReferrerID))
				if kerr != nil {
					return kerr
				}
				active := true
				upd := model.SubscriptionUpdate{VPNKey: &key.AccessURL, VPNKeyID: &key.ID, EndDate: &newEnd, IsActive: &active}
				if uerr := s.subs.Update(ctx, qx, existing.ID, upd); uerr != nil {
					return uerr
				}
				existing.VPNKey, existing.VPNKeyID, existing.EndDate, existing.IsActive = key.AccessURL, key.ID, newEnd, true
			}
			sub = existing
		case errors.Is(ferr, domain.ErrSubscriptionNotFound):
			duration := time.Duration(trial.DurationDays)*24*time.Hour + time.Duration(referral.BonusDays)*24*time.Hour
			key, kerr := s.vpn.CreateKey(ctx, keyName(referral.ReferrerID))
			if kerr != nil {
				return kerr
			}
			created := &model.Subscription{
				ID: uuid.NewString(), UserID: referral.ReferrerID, TariffID: trial.ID,
				VPNKey: key.AccessURL, VPNKeyID: key.ID,
				EndDate: now.Add(duration), IsActive: true, CntPayments: 0,
				CreatedAt: now, UpdatedAt: now,
			}
			if serr := s.subs.Save(ctx, qx, created); serr != nil {
				return serr
			}
			sub = created

			referrer, uerr := s.users.FindByID(ctx, qx, referral.ReferrerID)
			if uerr != nil {
				return uerr
			}
			referrer.TrialUsed = true
			if serr := s.users.Save(ctx, qx, referrer); serr != nil {
				return serr
			}
		default:
			return ferr
		}

		return nil
	})
	if err != nil {
		return apperr.WrapIfUnexpected(apperr.ServiceSubscription, "ApplyReferralBonus.referrer", err)
	}
	if err := s.replan(ctx, sub); err != nil {
		return apperr.Wrap(apperr.ServiceSubscription, "ApplyReferralBonus.referrer.replan", err)
	}
	return nil
}
