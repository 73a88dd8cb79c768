// Package notify implements the Notification Sink contract against the
// chat platform's plain HTTP send endpoint. It is deliberately thin: the
// core only ever needs send(user_id, text), never the webhook/update-
// routing surface a full bot client pulls in.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/adapter"
)

var _ adapter.NotificationSink = (*TelegramSink)(nil)

const defaultAPIBase = "https://api.telegram.org"

// TelegramSink posts to the Bot API's sendMessage endpoint directly.
type TelegramSink struct {
	token   string
	apiBase string
	client  *http.Client
}

func NewTelegramSink(token string) *TelegramSink {
	return &TelegramSink{
		token:   token,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// NewTelegramSinkWithBase is NewTelegramSink with an overridable API root,
// for pointing at a local double in tests.
func NewTelegramSinkWithBase(token, apiBase string) *TelegramSink {
	s := NewTelegramSink(token)
	s.apiBase = apiBase
	return s
}

// Send is a single best-effort attempt; callers (SubscriptionService.Notify)
// own the retry/swallow policy, so this does not retry internally.
func (s *TelegramSink) Send(ctx context.Context, userID int64, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	body := url.Values{
		"chat_id": {fmt.Sprintf("%d", userID)},
		"text":    {text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return apperr.WrapTransport(apperr.CollaboratorNotificationSink, "Send", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.WrapTransport(apperr.CollaboratorNotificationSink, "Send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return apperr.WrapTransport(apperr.CollaboratorNotificationSink, "Send",
			fmt.Errorf("telegram sendMessage http %d: %s", resp.StatusCode, payload.Description))
	}
	return nil
}
