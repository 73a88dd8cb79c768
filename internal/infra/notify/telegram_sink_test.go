package notify_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/notify"
)

func TestTelegramSink_Send_FormEncodesChatIDAndText(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotBody = r.FormValue("chat_id") + "|" + r.FormValue("text")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sink := notify.NewTelegramSinkWithBase("TEST_TOKEN", srv.URL)
	if err := sink.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form-encoded content type, got %q", gotContentType)
	}
	if gotBody != "42|hello" {
		t.Fatalf("expected chat_id=42 text=hello, got %q", gotBody)
	}
}

func TestTelegramSink_Send_NonOKStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"description":"bot was blocked by the user"}`))
	}))
	defer srv.Close()

	sink := notify.NewTelegramSinkWithBase("TEST_TOKEN", srv.URL)
	err := sink.Send(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
	var te *apperr.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TransportError, got %T: %v", err, err)
	}
}
