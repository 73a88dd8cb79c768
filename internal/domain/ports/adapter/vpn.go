package adapter

import "context"

// VPNKey is the remote key handed back by the provisioner: ID identifies it
// for later deletion, AccessURL is the client-usable ss:// link.
type VPNKey struct {
	ID        string
	AccessURL string
}

// VPNProvisioner is the thin client against the external key-issuance API.
// Implementations retry transport/5xx failures internally with a bounded
// budget and return a typed transport error once that budget is spent.
// DeleteKey is idempotent from the caller's perspective: a 404 is success.
type VPNProvisioner interface {
	CreateKey(ctx context.Context, name string) (*VPNKey, error)
	DeleteKey(ctx context.Context, keyID string) error
}
