package model

import "time"

// HandlerKey names the registered job handler. Two are used by the
// Subscription Lifecycle Engine: HandlerDeactivate and HandlerNotify.
type HandlerKey string

const (
	HandlerDeactivate HandlerKey = "DEACTIVATE"
	HandlerNotify     HandlerKey = "NOTIFY"
)

// Job is a durable one-shot timer. ID is stable and caller-assigned
// (e.g. "deactivate_<sub_id>"); RunAt is stored and compared in UTC.
type Job struct {
	ID         string
	RunAt      time.Time
	Handler    HandlerKey
	Args       string // JSON-encoded handler arguments, e.g. {"sub_id":"..."}
	CreatedAt  time.Time
	LockedBy   string
	LockedAt   *time.Time
}

// DeactivateJobID and NotifyJobID compute the stable job ids a Subscription
// projects into the scheduler, per the one-deactivate-one-notify invariant.
func DeactivateJobID(subID string) string { return "deactivate_" + subID }
func NotifyJobID(subID string) string     { return "notify_" + subID }
