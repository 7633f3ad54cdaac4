// Package http provides the HTTP handlers and middleware of the audit chain API.
package http

import (
	"context"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

// Identity is the caller resolved by the upstream gateway.
type Identity struct {
	OrganizationID string
	auditDomain.Actor
}

// identityKey is a context key type for storing the caller identity.
type identityKey struct{}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the caller identity from the context.
// Returns (identity, true) if present, or (nil, false) if no identity was set.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok
}
