// Package vpn implements the VPN Provisioner contract against an
// Outline-compatible access-key management API.
package vpn

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/averbusem/unbroken-vpn-bot/internal/apperr"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/adapter"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/metrics"
)

var _ adapter.VPNProvisioner = (*OutlineClient)(nil)

// OutlineClient is the HTTP client for the Outline access-key management
// API. It carries no internal state beyond its http.Client and is safe for
// concurrent use: a fresh request is issued per call.
type OutlineClient struct {
	baseURL    string
	client     *http.Client
	retryBudget time.Duration
}

// NewOutlineClient builds a client. When certSHA256 is non-empty it pins the
// server certificate's SHA-256 fingerprint, matching the management API's
// self-signed deployment convention (the Outline-Cert-SHA256 header value).
func NewOutlineClient(baseURL, certSHA256 string) (*OutlineClient, error) {
	transport := &http.Transport{}
	if certSHA256 != "" {
		pin, err := hex.DecodeString(certSHA256)
		if err != nil {
			return nil, fmt.Errorf("invalid vpn cert pin: %w", err)
		}
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
			VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				for _, raw := range rawCerts {
					cert, err := x509.ParseCertificate(raw)
					if err != nil {
						continue
					}
					sum := sha256.Sum256(cert.Raw)
					if bytes.Equal(sum[:], pin) {
						return nil
					}
				}
				return fmt.Errorf("vpn server certificate does not match pinned fingerprint")
			},
		}
	}
	return &OutlineClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: 10 * time.Second, Transport: transport},
		retryBudget: 60 * time.Second,
	}, nil
}

type createKeyResponse struct {
	ID        string `json:"id"`
	AccessURL string `json:"accessUrl"`
}

// CreateKey retries transport/5xx failures with exponential backoff across a
// 60s total budget, per the provisioner contract.
func (c *OutlineClient) CreateKey(ctx context.Context, name string) (*adapter.VPNKey, error) {
	start := time.Now()
	var result *adapter.VPNKey

	op := func() error {
		body, _ := json.Marshal(map[string]string{"name": name})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/access-keys", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err // network error: retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("outline create-key http %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("outline create-key http %d", resp.StatusCode))
		}

		var out createKeyResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode create-key response: %w", err))
		}
		result = &adapter.VPNKey{ID: out.ID, AccessURL: out.AccessURL}
		return nil
	}

	err := backoff.Retry(op, c.budget())
	metrics.ObserveVPNCall("create_key", outcomeOf(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, apperr.WrapTransport(apperr.CollaboratorVPN, "CreateKey", err)
	}
	return result, nil
}

// DeleteKey is idempotent from the caller's view: a 404 counts as success,
// since the key is already gone either way.
func (c *OutlineClient) DeleteKey(ctx context.Context, keyID string) error {
	start := time.Now()
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/access-keys/"+keyID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
			return nil
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("outline delete-key http %d", resp.StatusCode)
		}
		return backoff.Permanent(fmt.Errorf("outline delete-key http %d", resp.StatusCode))
	}

	err := backoff.Retry(op, c.budget())
	metrics.ObserveVPNCall("delete_key", outcomeOf(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return apperr.WrapTransport(apperr.CollaboratorVPN, "DeleteKey", err)
	}
	return nil
}

func outcomeOf(err error) string {
	if err != nil {
		return "transport_error"
	}
	return "success"
}

func (c *OutlineClient) budget() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = c.retryBudget
	return bo
}
