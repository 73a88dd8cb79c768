// Package apperr defines the Service-technical error classes named in the
// error handling design: wrappers services raise for unexpected failures,
// carrying enough context for logs without leaking internals to the user.
package apperr

import (
	"errors"
	"fmt"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
)

// ServiceError wraps an unexpected failure from a named service and
// operation. Handlers render a single generic failure for any ServiceError
// and roll back; the wrapped err is for logs, not for users.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func Wrap(service, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Service: service, Op: op, Err: err}
}

const (
	ServiceUser         = "UserService"
	ServiceSubscription = "SubscriptionService"
	ServiceReferral     = "ReferralService"
	ServicePayment      = "PaymentService"
)

// TransportError marks a failure from an external collaborator (VPN
// provisioner, chat send) that exhausted its retry budget. It is distinct
// from ServiceError: a Service-technical failure is unexpected, a
// TransportError is an expected, typed outcome of talking to the outside
// world and callers may branch on it (e.g. notify swallows it, deactivate
// does not).
type TransportError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func WrapTransport(collaborator, op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Collaborator: collaborator, Op: op, Err: err}
}

const CollaboratorVPN = "VPNProvisioner"
const CollaboratorNotificationSink = "NotificationSink"

var businessErrors = []error{
	domain.ErrUserNotFound,
	domain.ErrSelfReferral,
	domain.ErrSubscriptionAlreadyExist,
	domain.ErrReferralAlreadyExist,
	domain.ErrReferralCodeGeneration,
	domain.ErrTariffNotFound,
	domain.ErrSubscriptionNotFound,
	domain.ErrSubscriptionNotActive,
	domain.ErrPaymentNotFound,
	domain.ErrTrialAlreadyUsed,
	domain.ErrPaymentAlreadyProcessed,
}

// IsBusiness reports whether err is one of the named Business errors, which
// services raise unwrapped so handlers can render a distinct message.
func IsBusiness(err error) bool {
	for _, b := range businessErrors {
		if errors.Is(err, b) {
			return true
		}
	}
	return false
}

// WrapIfUnexpected wraps err as a ServiceError unless it is already a
// typed, expected outcome — a Business error or a TransportError — that a
// handler is meant to branch on directly.
func WrapIfUnexpected(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if IsBusiness(err) {
		return err
	}
	return Wrap(service, op, err)
}
