package domain

import "errors"

// Business errors. Services raise these unwrapped; handlers render each as
// a distinct, user-facing message per the propagation policy.
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrSelfReferral             = errors.New("cannot apply your own referral code")
	ErrSubscriptionAlreadyExist = errors.New("user already has a subscription")
	ErrReferralAlreadyExist     = errors.New("referral already applied for this user")
	ErrReferralCodeGeneration   = errors.New("could not mint a unique referral code")
	ErrTariffNotFound           = errors.New("tariff not found")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrSubscriptionNotActive    = errors.New("subscription is not active")
	ErrPaymentNotFound          = errors.New("payment not found")
	ErrTrialAlreadyUsed         = errors.New("trial already used")
	ErrPaymentAlreadyProcessed  = errors.New("payment already processed")

	// ErrNotFound is a generic not-found used by repositories for rows that
	// have no dedicated business error (e.g. scheduler jobs).
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entity already exists")

	// Store-technical sentinels raised by the postgres layer. These never
	// reach a handler unwrapped; services fold them into apperr.ServiceError.
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction executor")

	// ErrLockNotAcquired is raised by the Redis distributed lock used to
	// guard payment-callback idempotency checks across process instances.
	ErrLockNotAcquired = errors.New("could not acquire distributed lock")
)
