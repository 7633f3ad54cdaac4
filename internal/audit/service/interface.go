// Package service provides the audit chain's hashing and per-organization append locking.
package service

import (
	"context"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

// ChainHasher computes the CurrentHash of audit entries.
type ChainHasher interface {
	// Hash returns the lowercase hex digest of e's canonical serialization. CurrentHash and
	// IsIntegrityVerified are not part of the digest.
	Hash(e *auditDomain.Entry) string

	// Verify reports whether e.CurrentHash matches a fresh Hash(e).
	Verify(e *auditDomain.Entry) bool
}

// AppendLocker serializes appends for one organization.
type AppendLocker interface {
	// Lock blocks until the organization's lock is held or ctx is done. The returned unlock
	// function must be called exactly once.
	Lock(ctx context.Context, organizationID string) (unlock func(), err error)
}
