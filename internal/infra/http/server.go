// Package http exposes the two external HTTP surfaces this backend owns:
// the payment-provider success callback and a small operator surface
// (health/readiness/metrics). The chat front-end is out of scope; nothing
// here renders pages for end users.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/metrics"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/redis"
	"github.com/averbusem/unbroken-vpn-bot/internal/service"
)

// PaymentProcessor is the narrow slice of PaymentService the callback
// handler needs; declared here so the handler can be tested against a fake
// without importing the concrete service type.
type PaymentProcessor interface {
	ProcessSuccess(ctx context.Context, paymentID, externalChargeID, providerChargeID string) (*service.ProcessResult, error)
}

// Pinger is satisfied by *pgxpool.Pool and the redis Client, checked by
// /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server hosts the payment webhook plus /healthz, /readyz, /metrics on a
// single chi router.
type Server struct {
	router  chi.Router
	payment PaymentProcessor
	db      Pinger
	cache   Pinger
	// idempotency is a short-TTL distributed lock guarding against the
	// payment provider redelivering the same callback before the first
	// attempt's transaction has committed.
	idempotency redis.Locker
	idempoTTL   time.Duration
	log         *zerolog.Logger
}

func NewServer(payment PaymentProcessor, db, cache Pinger, idempotency redis.Locker, idempoTTL time.Duration, log *zerolog.Logger) *Server {
	s := &Server{payment: payment, db: db, cache: cache, idempotency: idempotency, idempoTTL: idempoTTL, log: log}
	s.router = s.newRouter()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/payments/{payment_id}/callback", s.handlePaymentCallback)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	if err := s.cache.Ping(ctx); err != nil {
		http.Error(w, "cache not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type paymentCallbackRequest struct {
	ExternalChargeID string `json:"external_charge_id"`
	ProviderChargeID string `json:"provider_charge_id"`
}

type paymentCallbackResponse struct {
	Action  string `json:"action"`
	EndDate string `json:"end_date"`
}

// handlePaymentCallback consumes the two opaque charge identifiers spec
// section 6 names; it never interprets the payment provider's own
// protocol beyond this pair. A short Redis lock absorbs a redelivery that
// lands before the first attempt's unit-of-work has committed; a
// redelivery that lands after it is rejected downstream with
// domain.ErrPaymentAlreadyProcessed, because MarkSuccess only updates a
// still-PENDING row and external_charge_id is unique.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "payment_id")
	if paymentID == "" {
		http.Error(w, "missing payment_id", http.StatusBadRequest)
		return
	}

	var req paymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalChargeID == "" || req.ProviderChargeID == "" {
		http.Error(w, "external_charge_id and provider_charge_id are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	lockKey := fmt.Sprintf("payment_callback:%s:%s", paymentID, req.ExternalChargeID)
	token, err := s.idempotency.TryLock(ctx, lockKey, s.idempoTTL)
	if err != nil {
		s.log.Info().Str("payment_id", paymentID).Msg("http: duplicate payment callback observed within idempotency window")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"action":"duplicate"}`))
		return
	}
	defer func() { _ = s.idempotency.Unlock(context.Background(), lockKey, token) }()

	result, err := s.payment.ProcessSuccess(ctx, paymentID, req.ExternalChargeID, req.ProviderChargeID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			http.Error(w, "payment not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrPaymentAlreadyProcessed):
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"action":"already_processed"}`))
		default:
			s.log.Error().Err(err).Str("payment_id", paymentID).Msg("http: payment callback failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	metrics.IncPayment("success")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(paymentCallbackResponse{
		Action:  result.Action,
		EndDate: result.EndDate.Format(time.RFC3339),
	})
}
