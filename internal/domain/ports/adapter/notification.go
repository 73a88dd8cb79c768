package adapter

import "context"

// NotificationSink is the outbound channel to the chat platform. Its Send
// errors are transient-by-contract: callers (the Subscription Service's
// notify handler) log and swallow them rather than propagate.
type NotificationSink interface {
	Send(ctx context.Context, userID int64, text string) error
}
